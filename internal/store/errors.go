package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/fichas/internal/ficha"
)

const (
	tableCategories = "categorias"
	tableCrops      = "cultivos"
	tableSheets     = "fichas_tecnicas"
)

// builder returns a squirrel statement builder using SQLite placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// wrapErr converts a driver error into the domain taxonomy.
// notFound is returned for sql.ErrNoRows; it may be nil when a missing row is
// not expected by the caller.
func wrapErr(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			err = fmt.Errorf("unknown category or crop reference: %w", err)
		case sqlite3.ErrConstraintCheck:
			err = fmt.Errorf("row rejected by check constraint: %w", err)
		}
	}
	return &ficha.StorageError{Op: op, Err: err}
}
