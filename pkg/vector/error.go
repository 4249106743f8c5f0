package vector

import "errors"

var (
	// ErrVectorStore wraps failures reported by a vector store backend.
	ErrVectorStore = errors.New("vector store failed")

	// ErrCollectionNotFound is returned when searching or upserting into an
	// unknown collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when creating a collection twice.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrDimensionMismatch is returned when a vector does not match the
	// collection's dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
