// Package api provides the HTTP API for creating collections, uploading
// documents and chatting with a collection.
package api

// DefaultMaxUploadBytes bounds a request body, and so a single upload.
const DefaultMaxUploadBytes = 32 << 20

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// VectorSize is used for collections created without an explicit size.
	VectorSize uint

	// DefaultSessionID is used for chat requests that name no session.
	DefaultSessionID string

	// MaxUploadBytes bounds a request body. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int
}
