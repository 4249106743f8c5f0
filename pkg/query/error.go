package query

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/docrag/pkg/embeddings"
	"github.com/papercomputeco/docrag/pkg/rerank"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// Stage sentinels. They alias the sentinels of the underlying packages so
// either can be matched with errors.Is.
var (
	ErrEmbedding   = embeddings.ErrEmbedding
	ErrVectorStore = vector.ErrVectorStore
	ErrRerank      = rerank.ErrRerank
	ErrGeneration  = errors.New("answer generation failed")
)

// Stage names a step of the query pipeline.
type Stage string

const (
	StageEmbed    Stage = "embed"
	StageSearch   Stage = "search"
	StageRerank   Stage = "rerank"
	StageGenerate Stage = "generate"
)

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return &StageError{Stage: stage, Err: err}
	}
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %w", sentinel, err)}
}
