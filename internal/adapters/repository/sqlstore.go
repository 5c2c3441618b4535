package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/bookshelf/internal/domain/book"
)

// AUTOINCREMENT keeps SQLite from reusing the id of a deleted row.
const createBooksTable = `CREATE TABLE IF NOT EXISTS books (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        VARCHAR(200) NOT NULL,
	author       VARCHAR(100) NOT NULL,
	release_year INTEGER NULL
)`

type bookRow struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string `gorm:"column:title;size:200;not null"`
	Author      string `gorm:"column:author;size:100;not null"`
	ReleaseYear *int64 `gorm:"column:release_year"`
}

func (bookRow) TableName() string { return "books" }

func (r bookRow) toBook() book.Book {
	return book.Book{ID: r.ID, Title: r.Title, Author: r.Author, ReleaseYear: r.ReleaseYear}
}

func rowFrom(b book.Book) bookRow {
	return bookRow{ID: b.ID, Title: b.Title, Author: b.Author, ReleaseYear: b.ReleaseYear}
}

// SQLStore is a Store backed by SQLite through GORM.
//
// The pool holds a single connection so writes are serialized by SQLite
// itself, and ":memory:" databases behave as one database.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens dsn and creates the books table if needed.
func NewSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).Exec(createBooksTable).Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: migrate: %w", ErrOpen, err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Create(ctx context.Context, fields book.Fields) (book.Book, error) {
	if err := book.ValidateCreate(fields); err != nil {
		return book.Book{}, err
	}

	row := rowFrom(fields.Replace(0))
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return book.Book{}, fmt.Errorf("create book: %w", err)
	}
	return row.toBook(), nil
}

func (s *SQLStore) List(ctx context.Context) ([]book.Book, error) {
	var rows []bookRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	out := make([]book.Book, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toBook())
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (book.Book, error) {
	row, err := findRow(s.db.WithContext(ctx), id)
	if err != nil {
		return book.Book{}, err
	}
	return row.toBook(), nil
}

func (s *SQLStore) Replace(ctx context.Context, id int64, fields book.Fields) (book.Book, error) {
	var out book.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findRow(tx, id); err != nil {
			return err
		}
		if err := book.ValidateCreate(fields); err != nil {
			return err
		}

		out = fields.Replace(id)
		row := rowFrom(out)
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("replace book %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return book.Book{}, err
	}
	return out, nil
}

func (s *SQLStore) Patch(ctx context.Context, id int64, fields book.Fields) (book.Book, error) {
	var out book.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findRow(tx, id)
		if err != nil {
			return err
		}
		if err := book.ValidatePatch(fields); err != nil {
			return err
		}

		out = row.toBook()
		fields.Apply(&out)
		row = rowFrom(out)
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("patch book %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return book.Book{}, err
	}
	return out, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&bookRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete book %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return book.NotFound(id)
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&bookRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func findRow(db *gorm.DB, id int64) (bookRow, error) {
	var row bookRow
	err := db.Where("id = ?", id).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return bookRow{}, book.NotFound(id)
	case err != nil:
		return bookRow{}, fmt.Errorf("get book %d: %w", id, err)
	}
	return row, nil
}
