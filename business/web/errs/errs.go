// Package errs defines the error envelope returned by the v1 API and the
// trusted-error wrapper handlers use to surface client-facing failures.
package errs

import "errors"

// Response is the JSON body sent to the client when a request fails.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted carries an error whose message is safe to return to the client,
// together with the HTTP status the response should use. Anything not
// wrapped in a Trusted is reported as an internal server error.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps an expected handler error with its response status.
func NewTrusted(err error, status int) error {
	return &Trusted{Err: err, Status: status}
}

// Error returns the message of the wrapped error.
func (t *Trusted) Error() string {
	return t.Err.Error()
}

// IsTrusted reports whether a Trusted error exists in the error chain.
func IsTrusted(err error) bool {
	var t *Trusted
	return errors.As(err, &t)
}

// GetTrusted extracts the Trusted error from the chain, or nil if the
// chain does not carry one.
func GetTrusted(err error) *Trusted {
	var t *Trusted
	if errors.As(err, &t) {
		return t
	}
	return nil
}
