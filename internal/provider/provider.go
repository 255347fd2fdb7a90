// Package provider defines the error type raised by the external-provider
// gateways (embedding and vector index).
//
// Gateways are the error source: they wrap every provider failure (network,
// auth, rate limit, malformed response) in *Error and never catch it
// themselves. Callers that degrade gracefully, such as the retriever and
// the indexer, match with errors.As and convert the failure into an empty
// result instead of propagating it.
package provider

import "fmt"

// Provider identifiers used in Error.Provider.
const (
	Embedding   = "embedding"
	VectorIndex = "vector-index"
)

// Error wraps a failure from an external provider call.
type Error struct {
	Provider string // which provider failed ("embedding", "vector-index")
	Op       string // gateway operation ("embed", "upsert", "query", ...)
	Err      error  // underlying cause
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf wraps err as a provider Error for the given provider and operation.
func Errorf(providerName, op string, err error) *Error {
	return &Error{Provider: providerName, Op: op, Err: err}
}
