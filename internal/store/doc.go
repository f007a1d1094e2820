// Package store provides SQLite-backed storage for the crop catalog and
// technical sheets.
//
// Tables:
//   - categorias: seeded crop categories, keyed by a short code
//   - cultivos: seeded crops, UNIQUE(categoria_id, nombre)
//   - fichas_tecnicas: computed sheets with their JSON payload
//
// # Seeding
//
// Initialize inserts the fixed catalog with ON CONFLICT DO NOTHING, so it is
// safe to run on every start and from concurrent processes. A row that fails
// is logged and counted; it never aborts the rest of the seed.
//
// # Ordering
//
// Sheet listings are ordered by fecha_creacion DESC, id_ficha DESC.
// Timestamps come from the injected Clock and never go backwards relative to
// the newest stored sheet, so the id tiebreak only matters for equal stamps.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Payloads are stored in the canonical encoding produced by
// ficha.MarshalPayload.
package store
