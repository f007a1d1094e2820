package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"

	"github.com/roach88/fichas/internal/ficha"
)

// ListCategories returns all categories in insertion order.
func (s *Store) ListCategories(ctx context.Context) ([]ficha.Category, error) {
	query, args, err := builder().
		Select("id", "nombre", "COALESCE(descripcion, '')").
		From(tableCategories).
		OrderBy("rowid ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list categories", err, nil)
	}
	defer rows.Close()

	categories := []ficha.Category{}
	for rows.Next() {
		var c ficha.Category
		if err := rows.Scan(&c.Code, &c.Name, &c.Description); err != nil {
			return nil, wrapErr("list categories", err, nil)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list categories", err, nil)
	}
	return categories, nil
}

// GetCategory returns the category with the given code.
// Returns a ficha.NotFoundError if it does not exist.
func (s *Store) GetCategory(ctx context.Context, code string) (ficha.Category, error) {
	query, args, err := builder().
		Select("id", "nombre", "COALESCE(descripcion, '')").
		From(tableCategories).
		Where(squirrel.Eq{"id": code}).
		ToSql()
	if err != nil {
		return ficha.Category{}, fmt.Errorf("build get category: %w", err)
	}

	var c ficha.Category
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&c.Code, &c.Name, &c.Description)
	if err != nil {
		return ficha.Category{}, wrapErr("get category", err, &ficha.NotFoundError{Kind: "categoria", ID: code})
	}
	return c, nil
}

// ListCropsByCategory returns the crops of one category ordered by name.
// An unknown category yields an empty slice, not an error.
func (s *Store) ListCropsByCategory(ctx context.Context, code string) ([]ficha.Crop, error) {
	return s.listCrops(ctx, builder().
		Select("id", "nombre", "categoria_id").
		From(tableCrops).
		Where(squirrel.Eq{"categoria_id": code}).
		OrderBy("nombre ASC"))
}

// ListAllCrops returns every crop ordered by category code, then name.
func (s *Store) ListAllCrops(ctx context.Context) ([]ficha.Crop, error) {
	return s.listCrops(ctx, builder().
		Select("id", "nombre", "categoria_id").
		From(tableCrops).
		OrderBy("categoria_id ASC", "nombre ASC"))
}

func (s *Store) listCrops(ctx context.Context, q squirrel.SelectBuilder) ([]ficha.Crop, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list crops: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list crops", err, nil)
	}
	defer rows.Close()

	crops := []ficha.Crop{}
	for rows.Next() {
		var c ficha.Crop
		if err := rows.Scan(&c.ID, &c.Name, &c.CategoryCode); err != nil {
			return nil, wrapErr("list crops", err, nil)
		}
		crops = append(crops, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list crops", err, nil)
	}
	return crops, nil
}

// GetCrop returns the crop with the given id.
// Returns a ficha.NotFoundError if it does not exist.
func (s *Store) GetCrop(ctx context.Context, id int64) (ficha.Crop, error) {
	query, args, err := builder().
		Select("id", "nombre", "categoria_id").
		From(tableCrops).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return ficha.Crop{}, fmt.Errorf("build get crop: %w", err)
	}

	var c ficha.Crop
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Name, &c.CategoryCode); err != nil {
		return ficha.Crop{}, wrapErr("get crop", err,
			&ficha.NotFoundError{Kind: "cultivo", ID: strconv.FormatInt(id, 10)})
	}
	return c, nil
}
