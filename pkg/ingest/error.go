package ingest

import "errors"

// ErrNoContent is returned when a document yields no extractable text. It is
// terminal for that document rather than a fault.
var ErrNoContent = errors.New("no content could be extracted from the document")
