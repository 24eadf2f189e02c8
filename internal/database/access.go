package database

import (
	"context"
	"fmt"
	"time"

	"clinica/internal/models"
)

// RecordAccess upserts the per-user access row for an ebook: first access
// creates it, later ones only touch last_access.
func (db *DB) RecordAccess(ctx context.Context, userID, ebookID string) (*models.UserEbookAccess, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_ebook_access (user_id, ebook_id)
		VALUES (?, ?)
		ON CONFLICT(user_id, ebook_id) DO UPDATE SET
			last_access = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP`,
		userID, ebookID,
	)
	if err != nil {
		return nil, fmt.Errorf("record access: %w", err)
	}
	return db.GetAccess(ctx, userID, ebookID)
}

// RecordDownload bumps the per-user download counter and timestamps, creating
// the access row when the download is the first interaction.
func (db *DB) RecordDownload(ctx context.Context, userID, ebookID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_ebook_access (user_id, ebook_id, download_count, last_download)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, ebook_id) DO UPDATE SET
			download_count = download_count + 1,
			last_download = CURRENT_TIMESTAMP,
			last_access = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP`,
		userID, ebookID,
	)
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}

// GetAccess returns one user's access row for an ebook.
func (db *DB) GetAccess(ctx context.Context, userID, ebookID string) (*models.UserEbookAccess, error) {
	var (
		a            models.UserEbookAccess
		lastDownload *time.Time
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, ebook_id, download_count, last_download,
		       first_access, last_access, created_at, updated_at
		FROM user_ebook_access WHERE user_id = ? AND ebook_id = ?`,
		userID, ebookID,
	).Scan(&a.ID, &a.UserID, &a.EbookID, &a.DownloadCount, &lastDownload,
		&a.FirstAccess, &a.LastAccess, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get access: %w", err)
	}
	a.LastDownload = lastDownload
	return &a, nil
}

// ListUserAccess returns every ebook a user has touched, latest first.
func (db *DB) ListUserAccess(ctx context.Context, userID string) ([]models.UserEbookAccess, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, ebook_id, download_count, last_download,
		       first_access, last_access, created_at, updated_at
		FROM user_ebook_access
		WHERE user_id = ?
		ORDER BY last_access DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user access: %w", err)
	}
	defer rows.Close()

	var result []models.UserEbookAccess
	for rows.Next() {
		var (
			a            models.UserEbookAccess
			lastDownload *time.Time
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.EbookID, &a.DownloadCount, &lastDownload,
			&a.FirstAccess, &a.LastAccess, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.LastDownload = lastDownload
		result = append(result, a)
	}
	return result, rows.Err()
}
