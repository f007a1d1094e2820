// Package calc runs the external calculation engines that produce technical
// sheet payloads.
//
// Engines are Python modules executed as
//
//	<interpreter> -m <module> <hectares>
//
// from a configured working directory. The engine answers on stdout with a
// single JSON object: either the sheet payload, or a fault of the form
// {"error": ..., "type": ..., "trace": ...}.
//
// # Failure classes
//
//   - ficha.ValidationError: unknown engine key or bad hectares; nothing is spawned
//   - ficha.CalculationFault: the engine ran and reported or produced no usable result
//   - ficha.EngineUnavailableError: no interpreter, spawn failure, timeout or cancellation
//
// Every run is bounded by a timeout and killed together with its process
// group when the caller's context ends. Runs are never retried.
package calc
