package ficha

import (
	"encoding/json"
	"strconv"
	"time"
)

// DefaultProvince is stored when the caller does not name a province.
const DefaultProvince = "No especificada"

// Category is a top-level grouping of crops (e.g. PECUARIOS).
// Categories are seeded reference data and are never updated or deleted.
type Category struct {
	Code        string `json:"id" yaml:"id"`
	Name        string `json:"nombre" yaml:"nombre"`
	Description string `json:"descripcion" yaml:"descripcion"`
}

// Crop is a cultivated product within a category.
// (CategoryCode, Name) is unique.
type Crop struct {
	ID           int64  `json:"id" yaml:"id"`
	Name         string `json:"nombre" yaml:"nombre"`
	CategoryCode string `json:"categoria_id" yaml:"categoria_id"`
}

// Sheet is a persisted technical sheet.
//
// CropID and Province are nullable. Payload is the engine output decoded back
// into structured form. Sheets are immutable once created.
type Sheet struct {
	ID           int64     `json:"id_ficha" yaml:"id_ficha"`
	CategoryCode string    `json:"categoria_id" yaml:"categoria_id"`
	CropID       *int64    `json:"cultivo_id" yaml:"cultivo_id"`
	Province     *string   `json:"provincia" yaml:"provincia"`
	Hectares     float64   `json:"hectareas" yaml:"hectareas"`
	Payload      Payload   `json:"datos_json" yaml:"datos_json"`
	CreatedAt    time.Time `json:"fecha_creacion" yaml:"fecha_creacion"`
}

// Payload is the schemaless result of a calculation engine run.
//
// Values are the ones produced by UnmarshalPayload: map[string]any, []any,
// string, bool, nil and json.Number. Numbers stay json.Number so they are
// written back exactly as they were read.
type Payload map[string]any

// MarshalJSON writes the canonical encoding of p. encoding/json still
// escapes HTML in the result unless the encoder has SetEscapeHTML(false).
func (p Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return MarshalPayload(p)
}

// UnmarshalJSON decodes with json.Number preservation.
func (p *Payload) UnmarshalJSON(data []byte) error {
	decoded, err := UnmarshalPayload(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// Clone returns a shallow copy of p.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Number converts an int64 into the number representation used in payloads.
func Number(n int64) json.Number {
	return json.Number(strconv.FormatInt(n, 10))
}
