package rag

import "errors"

// Error kinds surfaced by the engine. Routes map these to HTTP responses
// with errors.Is; everything else is treated as an internal error.
var (
	// ErrEmptyDocument means the ingested text produced zero usable chunks.
	// No index is created or replaced.
	ErrEmptyDocument = errors.New("document has no usable content")

	// ErrEmbeddingProvider means an embedding call failed or returned
	// malformed vectors. A failed rebuild leaves the previous index intact.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrIndexBusy means a build and a search collided on the same session.
	ErrIndexBusy = errors.New("session index is busy")

	// ErrNoActiveIndex means an ask arrived before any document was ingested.
	ErrNoActiveIndex = errors.New("no document indexed for session")

	// ErrProviderTimeout means a completion call exceeded its deadline.
	ErrProviderTimeout = errors.New("completion provider timed out")

	// ErrProvider means a completion call failed outright.
	ErrProvider = errors.New("completion provider failed")

	// ErrInvalidArgument covers malformed strategy names, non-positive k and
	// invalid chunk configuration. Always rejected before any provider call.
	ErrInvalidArgument = errors.New("invalid argument")
)
