package harness

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation matched.
	Pass bool `json:"pass"`

	// Query is the generated SQL. Empty when the request was rejected.
	Query string `json:"query,omitempty"`

	// Arms is the number of compiled UNION ALL arms.
	Arms int `json:"arms"`

	// Warnings are the validation warnings reported by the compiler.
	Warnings []string `json:"warnings,omitempty"`

	// ErrorCodes are the validation error codes the request was rejected with.
	ErrorCodes []string `json:"error_codes,omitempty"`

	// RequestHash is the canonical hash under which the query was recorded.
	RequestHash string `json:"request_hash,omitempty"`

	// Errors contains expectation failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
