// Package harness runs YAML scenarios against the technical sheet service
// as executable contract tests.
//
// Each scenario gets a fresh seeded database, a stub calculation engine and
// a deterministic clock, so the resulting trace is reproducible and can be
// compared against a golden file.
//
// # Scenario Format
//
//	name: compute_stores_sheet
//	description: "A successful run is stored and returned with its id"
//	engine:
//	  output: '{"costo_total": 1000}'
//	  exit_code: 0
//	flow:
//	  - op: compute
//	    args: { hectareas: 2.5, categoria_id: PEREN_SEMI, cultivo_id: 7 }
//	    expect:
//	      outcome: stored
//	      result: { costo_total: 1000, id_ficha: 1 }
//	assertions:
//	  - type: sheet_count
//	    count: 1
//	  - type: final_sheet
//	    id: 1
//	    expect: { categoria_id: PEREN_SEMI, cultivo_id: 7 }
//
// # Operations
//
//   - compute: runs ComputeAndStore with hectareas, categoria_id, cultivo_id,
//     provincia and motor
//   - get: reads sheet args.id
//   - list: lists sheets filtered by categoria_id and provincia
//   - delete: deletes sheet args.id
//
// # Assertion Types
//
//   - sheet_count: number of stored sheets, optionally filtered by where
//   - engine_calls: number of engine runs
//   - final_sheet: subset match against one stored sheet
package harness
