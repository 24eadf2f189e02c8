package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"clinica/internal/models"
)

// EbookFilter narrows ListEbooks results.
type EbookFilter struct {
	CategoryID  string
	IsPremium   *bool
	Search      string
	IncludeAll  bool // include inactive ebooks (admin views)
	Page, Limit int
}

const ebookColumns = `
	e.id, e.title, e.description, e.author, e.cover_image, e.file_url,
	e.file_type, e.file_size, e.is_premium, e.price, e.category_id,
	e.is_active, e.download_count, e.view_count, e.created_at, e.updated_at,
	c.id, c.name, c.description, c.created_at, c.updated_at`

func scanEbook(row interface{ Scan(...any) error }) (*models.Ebook, error) {
	var (
		e        models.Ebook
		c        models.EbookCategory
		desc     sql.NullString
		cover    sql.NullString
		fileURL  sql.NullString
		catDesc  sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Title, &desc, &e.Author, &cover, &fileURL,
		&e.FileType, &e.FileSize, &e.IsPremium, &e.Price, &e.CategoryID,
		&e.IsActive, &e.DownloadCount, &e.ViewCount, &e.CreatedAt, &e.UpdatedAt,
		&c.ID, &c.Name, &catDesc, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Description = desc.String
	e.CoverImage = cover.String
	e.FileURL = fileURL.String
	c.Description = catDesc.String
	e.Category = &c
	return &e, nil
}

// ListEbooks returns a page of ebooks plus the total matching count.
func (db *DB) ListEbooks(ctx context.Context, f EbookFilter) ([]models.Ebook, int64, error) {
	where := []string{"1=1"}
	var args []any

	if !f.IncludeAll {
		where = append(where, "e.is_active = 1")
	}
	if f.CategoryID != "" {
		where = append(where, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.IsPremium != nil {
		where = append(where, "e.is_premium = ?")
		args = append(args, *f.IsPremium)
	}
	if f.Search != "" {
		where = append(where, "(e.title LIKE ? OR e.description LIKE ? OR e.author LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM ebooks e WHERE " + clause
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ebooks: %w", err)
	}

	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	query := `SELECT ` + ebookColumns + `
		FROM ebooks e
		JOIN ebook_categories c ON c.id = e.category_id
		WHERE ` + clause + `
		ORDER BY e.created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, f.Limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ebooks: %w", err)
	}
	defer rows.Close()

	var ebooks []models.Ebook
	for rows.Next() {
		e, err := scanEbook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ebook: %w", err)
		}
		ebooks = append(ebooks, *e)
	}
	return ebooks, total, rows.Err()
}

// GetEbook returns one ebook with its category.
func (db *DB) GetEbook(ctx context.Context, id string) (*models.Ebook, error) {
	row := db.QueryRowContext(ctx, `SELECT `+ebookColumns+`
		FROM ebooks e
		JOIN ebook_categories c ON c.id = e.category_id
		WHERE e.id = ?`, id)
	e, err := scanEbook(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ebook: %w", err)
	}
	return e, nil
}

// CreateEbook inserts a new catalog entry.
func (db *DB) CreateEbook(ctx context.Context, e *models.Ebook) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO ebooks (
			id, title, description, author, cover_image, file_url,
			file_type, file_size, is_premium, price, category_id, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, e.Author, e.CoverImage, e.FileURL,
		e.FileType, e.FileSize, e.IsPremium, e.Price, e.CategoryID, e.IsActive,
	)
	if err != nil {
		return fmt.Errorf("create ebook: %w", err)
	}
	return nil
}

// UpdateEbook overwrites mutable catalog fields.
func (db *DB) UpdateEbook(ctx context.Context, e *models.Ebook) error {
	res, err := db.ExecContext(ctx, `
		UPDATE ebooks SET
			title = ?, description = ?, author = ?, cover_image = ?,
			file_url = ?, file_type = ?, file_size = ?, is_premium = ?,
			price = ?, category_id = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		e.Title, e.Description, e.Author, e.CoverImage,
		e.FileURL, e.FileType, e.FileSize, e.IsPremium,
		e.Price, e.CategoryID, e.IsActive, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update ebook: %w", err)
	}
	return requireAffected(res)
}

// DeleteEbook removes an ebook and its access records.
func (db *DB) DeleteEbook(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_ebook_access WHERE ebook_id = ?`, id); err != nil {
		return fmt.Errorf("delete ebook access: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM ebooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ebook: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// IncrementViewCount bumps the global view counter.
func (db *DB) IncrementViewCount(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE ebooks SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

// IncrementDownloadCount bumps the global download counter.
func (db *DB) IncrementDownloadCount(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE ebooks SET download_count = download_count + 1 WHERE id = ?`, id)
	return err
}

// ListCategories returns all categories ordered by name.
func (db *DB) ListCategories(ctx context.Context) ([]models.EbookCategory, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM ebook_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.EbookCategory
	for rows.Next() {
		var (
			c    models.EbookCategory
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Description = desc.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategory returns one category.
func (db *DB) GetCategory(ctx context.Context, id string) (*models.EbookCategory, error) {
	var (
		c    models.EbookCategory
		desc sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM ebook_categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	c.Description = desc.String
	return &c, nil
}

// CreateCategory inserts a category.
func (db *DB) CreateCategory(ctx context.Context, c *models.EbookCategory) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO ebook_categories (id, name, description) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.Description,
	)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// UpdateCategory renames/redescribes a category.
func (db *DB) UpdateCategory(ctx context.Context, c *models.EbookCategory) error {
	res, err := db.ExecContext(ctx, `
		UPDATE ebook_categories SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		c.Name, c.Description, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res)
}

// ErrCategoryInUse blocks deletion of categories that still have ebooks.
var ErrCategoryInUse = fmt.Errorf("category has ebooks")

// DeleteCategory removes a category. Fails with ErrCategoryInUse while any
// ebook still references it.
func (db *DB) DeleteCategory(ctx context.Context, id string) error {
	var count int64
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ebooks WHERE category_id = ?`, id,
	).Scan(&count); err != nil {
		return fmt.Errorf("count category ebooks: %w", err)
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	res, err := db.ExecContext(ctx, `DELETE FROM ebook_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

// GetEbookStats aggregates library counters for the admin dashboard.
func (db *DB) GetEbookStats(ctx context.Context) (*models.EbookStats, error) {
	var stats models.EbookStats
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(is_active), 0),
		       COALESCE(SUM(is_premium), 0),
		       COALESCE(SUM(download_count), 0),
		       COALESCE(SUM(view_count), 0)
		FROM ebooks`,
	).Scan(&stats.TotalEbooks, &stats.ActiveEbooks, &stats.PremiumEbooks,
		&stats.TotalDownloads, &stats.TotalViews)
	if err != nil {
		return nil, fmt.Errorf("ebook stats: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.name, COUNT(e.id), COALESCE(SUM(e.download_count), 0)
		FROM ebook_categories c
		LEFT JOIN ebooks e ON e.category_id = c.id
		GROUP BY c.id, c.name
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.CategoryStatsItem
		if err := rows.Scan(&item.CategoryID, &item.CategoryName, &item.EbookCount, &item.Downloads); err != nil {
			return nil, err
		}
		stats.ByCategory = append(stats.ByCategory, item)
	}
	return &stats, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
