package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/roach88/fichas/internal/ficha"
)

// timeLayout is fixed width in UTC so string order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// NewSheet is the input to CreateSheet.
type NewSheet struct {
	CategoryCode string
	CropID       *int64
	Province     *string
	Hectares     float64
	Payload      ficha.Payload
}

// SheetFilter narrows ListSheets and CountSheets. Empty fields match
// everything; set fields are combined with AND.
type SheetFilter struct {
	CategoryCode string
	Province     *string
}

func (f SheetFilter) where() squirrel.And {
	conds := squirrel.And{}
	if f.CategoryCode != "" {
		conds = append(conds, squirrel.Eq{"categoria_id": f.CategoryCode})
	}
	if f.Province != nil {
		conds = append(conds, squirrel.Eq{"provincia": *f.Province})
	}
	return conds
}

// CreateSheet persists a new sheet and returns its assigned id.
//
// The payload is stored in canonical form. The creation stamp comes from the
// store clock but is raised to the newest stored stamp when the clock is
// behind, so creation order and timestamp order never disagree.
func (s *Store) CreateSheet(ctx context.Context, in NewSheet) (int64, error) {
	if in.CategoryCode == "" {
		return 0, ficha.NewValidationError("categoria_id", "is required")
	}
	if math.IsNaN(in.Hectares) || math.IsInf(in.Hectares, 0) || in.Hectares <= 0 {
		return 0, ficha.NewValidationError("hectareas", "must be a finite number > 0, got %v", in.Hectares)
	}

	payload, err := ficha.MarshalPayload(in.Payload)
	if err != nil {
		return 0, err
	}

	stamp := s.clock.Now().UTC().Format(timeLayout)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fichas_tecnicas
		(categoria_id, cultivo_id, provincia, hectareas, datos_json, fecha_creacion)
		SELECT ?, ?, ?, ?, ?, MAX(?, COALESCE(MAX(fecha_creacion), ''))
		FROM fichas_tecnicas
	`,
		in.CategoryCode,
		nullInt64(in.CropID),
		nullString(in.Province),
		in.Hectares,
		string(payload),
		stamp,
	)
	if err != nil {
		return 0, wrapErr("create sheet", err, nil)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr("create sheet", err, nil)
	}
	return id, nil
}

// GetSheet returns the sheet with the given id.
// Returns a ficha.NotFoundError if it does not exist.
func (s *Store) GetSheet(ctx context.Context, id int64) (ficha.Sheet, error) {
	query, args, err := selectSheets().Where(squirrel.Eq{"id_ficha": id}).ToSql()
	if err != nil {
		return ficha.Sheet{}, fmt.Errorf("build get sheet: %w", err)
	}

	sheet, err := scanSheet(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if ficha.IsSerialization(err) {
			return ficha.Sheet{}, err
		}
		return ficha.Sheet{}, wrapErr("get sheet", err,
			&ficha.NotFoundError{Kind: "ficha", ID: strconv.FormatInt(id, 10)})
	}
	return sheet, nil
}

// ListSheets returns the sheets matching filter, newest first.
// A stored payload that cannot be decoded fails the whole call.
func (s *Store) ListSheets(ctx context.Context, filter SheetFilter) ([]ficha.Sheet, error) {
	query, args, err := selectSheets().
		Where(filter.where()).
		OrderBy("fecha_creacion DESC", "id_ficha DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sheets: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list sheets", err, nil)
	}
	defer rows.Close()

	sheets := []ficha.Sheet{}
	for rows.Next() {
		sheet, err := scanSheet(rows)
		if err != nil {
			if ficha.IsSerialization(err) {
				return nil, err
			}
			return nil, wrapErr("list sheets", err, nil)
		}
		sheets = append(sheets, sheet)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list sheets", err, nil)
	}
	return sheets, nil
}

// CountSheets returns how many sheets match filter.
func (s *Store) CountSheets(ctx context.Context, filter SheetFilter) (int64, error) {
	query, args, err := builder().
		Select("COUNT(*)").
		From(tableSheets).
		Where(filter.where()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count sheets: %w", err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapErr("count sheets", err, nil)
	}
	return n, nil
}

// DeleteSheet removes the sheet with the given id.
// Deleting a missing id is not an error.
func (s *Store) DeleteSheet(ctx context.Context, id int64) error {
	query, args, err := builder().
		Delete(tableSheets).
		Where(squirrel.Eq{"id_ficha": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete sheet: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return wrapErr("delete sheet", err, nil)
	}
	return nil
}

func selectSheets() squirrel.SelectBuilder {
	return builder().
		Select("id_ficha", "categoria_id", "cultivo_id", "provincia", "hectareas", "datos_json", "fecha_creacion").
		From(tableSheets)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSheet(row rowScanner) (ficha.Sheet, error) {
	var (
		sheet    ficha.Sheet
		cropID   sql.NullInt64
		province sql.NullString
		payload  string
		created  stamp
	)
	if err := row.Scan(
		&sheet.ID, &sheet.CategoryCode, &cropID, &province,
		&sheet.Hectares, &payload, &created,
	); err != nil {
		return ficha.Sheet{}, err
	}

	if cropID.Valid {
		v := cropID.Int64
		sheet.CropID = &v
	}
	if province.Valid {
		v := province.String
		sheet.Province = &v
	}
	sheet.CreatedAt = created.Time

	decoded, err := ficha.UnmarshalPayload([]byte(payload))
	if err != nil {
		return ficha.Sheet{}, &ficha.SerializationError{
			Op:  fmt.Sprintf("decode payload of ficha %d", sheet.ID),
			Err: err,
		}
	}
	sheet.Payload = decoded
	return sheet, nil
}

// stamp scans fecha_creacion. Databases created by older releases declare
// the column DATETIME, in which case the driver already hands back a
// time.Time.
type stamp struct {
	time.Time
}

var stampLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000",
}

func (st *stamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		st.Time = time.Time{}
		return nil
	case time.Time:
		st.Time = v.UTC()
		return nil
	case []byte:
		return st.parse(string(v))
	case string:
		return st.parse(v)
	default:
		return fmt.Errorf("unsupported fecha_creacion type %T", src)
	}
}

func (st *stamp) parse(s string) error {
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			st.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized fecha_creacion %q", s)
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
