// Package ficha defines the domain types shared by every layer of the
// technical sheet (ficha técnica) service.
//
// It holds three kinds of things:
//   - Catalog reference data: Category and Crop
//   - The persisted record: Sheet, with its opaque Payload
//   - The error taxonomy returned by the store, the calculation invoker and
//     the orchestrator (ValidationError, NotFoundError, SerializationError,
//     CalculationFault, EngineUnavailableError, StorageError)
//
// # Payload encoding
//
// A Payload is whatever the external calculation engine printed. This package
// never interprets its fields. It does own the wire form: MarshalPayload
// writes canonical JSON (sorted keys, no HTML escaping, NFC strings, numbers
// verbatim) so that a stored payload decodes and re-encodes to the same bytes.
//
// JSON field names on the domain types follow the historical column names
// (categoria_id, cultivo_id, hectareas, datos_json, ...) because existing
// clients and databases use them.
package ficha
