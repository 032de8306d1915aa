package pipeline

import (
	"errors"
	"fmt"

	"github.com/yildizm/studyrag/internal/ai"
)

// IngestError reports a failed document ingest. The document is never
// partially indexed: either every chunk landed or none did.
type IngestError struct {
	DocumentID string
	Filename   string

	// ChunkIndex is the first chunk that could not be embedded, or -1
	// when the failure was not chunk-specific
	ChunkIndex int

	Cause error
}

func (e *IngestError) Error() string {
	if e.ChunkIndex >= 0 {
		return fmt.Sprintf("ingest %s: chunk %d: %v", e.Filename, e.ChunkIndex, e.Cause)
	}
	return fmt.Sprintf("ingest %s: %v", e.Filename, e.Cause)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}

// newIngestError wraps a cause, pulling the offending chunk index out of an
// embedding failure when one is present.
func newIngestError(docID, filename string, cause error) *IngestError {
	chunkIndex := -1
	var embedFail *ai.EmbeddingFailure
	if errors.As(cause, &embedFail) {
		chunkIndex = embedFail.Offset
	}
	return &IngestError{
		DocumentID: docID,
		Filename:   filename,
		ChunkIndex: chunkIndex,
		Cause:      cause,
	}
}
