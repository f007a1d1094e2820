package harness

// Outcomes recorded for each flow step.
const (
	OutcomeStored      = "stored"
	OutcomeFound       = "found"
	OutcomeListed      = "listed"
	OutcomeDeleted     = "deleted"
	OutcomeValidation  = "validation_error"
	OutcomeNotFound    = "not_found"
	OutcomeFault       = "calculation_fault"
	OutcomeUnavailable = "engine_unavailable"
	OutcomeStorage     = "storage_error"
	OutcomeFailed      = "failed"
)

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Op      string         `json:"op"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Result  map[string]any `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
