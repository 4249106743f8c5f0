package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document's chunks are stored.
	EventTypeDocumentIngested = "docrag.document.ingested"
)

// DocumentIngestedEvent is a transport-neutral event payload for a stored
// document.
type DocumentIngestedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Collection    string    `json:"collection"`
	DocumentID    string    `json:"document_id"`
	DocumentName  string    `json:"document_name"`
	DocType       string    `json:"doc_type"`
	Chunks        int       `json:"chunks"`
}

// NewDocumentIngestedEvent stamps a fresh event id and emission time.
func NewDocumentIngestedEvent(collection, documentID, name, docType string, chunks int) *DocumentIngestedEvent {
	return &DocumentIngestedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDocumentIngested,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Collection:    collection,
		DocumentID:    documentID,
		DocumentName:  name,
		DocType:       docType,
		Chunks:        chunks,
	}
}
