package ports

import (
	"context"
	"io"
	"time"

	"paythru/internal/ocr/blocks"
)

// JobStatus is the provider-reported state of an asynchronous analysis.
type JobStatus string

const (
	JobInProgress JobStatus = "IN_PROGRESS"
	JobSucceeded  JobStatus = "SUCCEEDED"
	JobFailed     JobStatus = "FAILED"
)

// JobResult is one poll of an asynchronous analysis. Blocks is only set once
// the job has succeeded and holds every page of the result.
type JobResult struct {
	Status        JobStatus
	StatusMessage string
	Blocks        []blocks.Block
}

// Analyzer is the document-analysis provider. Implementations translate
// provider failures into *providers.ExtractionError.
type Analyzer interface {
	// Analyze runs a synchronous form- and table-aware analysis of document.
	Analyze(ctx context.Context, document []byte) ([]blocks.Block, error)

	// StartAnalysis submits an asynchronous analysis of a stored object and
	// returns the provider's job id.
	StartAnalysis(ctx context.Context, bucket, key string) (string, error)

	// GetAnalysis polls an asynchronous analysis once.
	GetAnalysis(ctx context.Context, jobID string) (*JobResult, error)
}

// ObjectStore holds the temporary copy of a document for asynchronous analysis.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, bucket, key string) error
}

// Clock lets tests run the poll loop without waiting.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}
