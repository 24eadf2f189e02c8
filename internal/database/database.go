// Package database is the sqlite persistence layer.
package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DB wraps sql.DB for the clinic service.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Active business-hours policy. Single row, id fixed to 1.
		`CREATE TABLE IF NOT EXISTS business_hours (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			lunch_start TEXT,
			lunch_end TEXT,
			consultation_duration INTEGER NOT NULL,
			interval_between INTEGER NOT NULL DEFAULT 0,
			enable_lunch_break BOOLEAN NOT NULL DEFAULT 0,
			allow_weekends BOOLEAN NOT NULL DEFAULT 0,
			available_days TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Premium subscriptions, at most one per user
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT UNIQUE NOT NULL,
			status TEXT NOT NULL DEFAULT 'INACTIVE',
			preapproval_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS ebook_categories (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS ebooks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			author TEXT NOT NULL,
			cover_image TEXT,
			file_url TEXT,
			file_type TEXT NOT NULL,
			file_size INTEGER NOT NULL DEFAULT 0,
			is_premium BOOLEAN NOT NULL DEFAULT 0,
			price REAL NOT NULL DEFAULT 0,
			category_id TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			download_count INTEGER NOT NULL DEFAULT 0,
			view_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (category_id) REFERENCES ebook_categories(id)
		)`,

		`CREATE TABLE IF NOT EXISTS user_ebook_access (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			ebook_id TEXT NOT NULL,
			download_count INTEGER NOT NULL DEFAULT 0,
			last_download DATETIME,
			first_access DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_access DATETIME DEFAULT CURRENT_TIMESTAMP,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, ebook_id),
			FOREIGN KEY (ebook_id) REFERENCES ebooks(id)
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			patient_name TEXT NOT NULL,
			patient_email TEXT NOT NULL,
			patient_phone TEXT,
			type TEXT,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments(date)`,
		`CREATE INDEX IF NOT EXISTS idx_ebooks_category ON ebooks(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_access_user ON user_ebook_access(user_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
