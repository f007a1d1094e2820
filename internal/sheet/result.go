package sheet

import "github.com/roach88/fichas/internal/ficha"

// Result is the outcome of ComputeAndStore.
type Result struct {
	SheetID int64
	Payload ficha.Payload
}

// Merged returns the payload with id_ficha set to the assigned id. The id
// replaces any id_ficha key the engine produced.
func (r Result) Merged() ficha.Payload {
	merged := r.Payload.Clone()
	merged["id_ficha"] = ficha.Number(r.SheetID)
	return merged
}

// MarshalJSON writes the merged payload.
func (r Result) MarshalJSON() ([]byte, error) {
	return ficha.MarshalPayload(r.Merged())
}

// MarshalYAML writes the merged payload.
func (r Result) MarshalYAML() (any, error) {
	return r.Merged().MarshalYAML()
}
