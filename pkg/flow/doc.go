// Package flow holds the outcome type shared by the blocking transfer helpers
// together with a few error and context utilities.
//
// Highlights:
// - Result[T]: a success, failure or cancellation carrying an id and a UTC timestamp
// - FromError: classify a (value, error) pair, context errors become cancellations
// - GetErrors/IsCancellationError: inspect joined and multierror errors
// - WithWorkerOptions/WithProcessOptions: carry batch settings through a context
package flow
