package directory

import "time"

// Record is what is known about the registration at one directory.
//
// On failure only LastAttempt and LastError change; ID and LastSuccess keep
// describing the last registration that worked.
type Record struct {
	ID          string    `json:"id,omitempty"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastAttempt time.Time `json:"last_attempt"`
	LastError   string    `json:"last_error,omitempty"`
}

// Result is the outcome of one registration request.
type Result struct {
	Directory string
	ID        string
	Err       error
}

// OK reports whether the registration succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}
