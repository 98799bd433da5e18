// Package textract adapts AWS Textract document analysis to ports.Analyzer.
package textract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"paythru/internal/ocr/blocks"
	"paythru/internal/ocr/ports"
	"paythru/internal/ocr/providers"
)

// API is the subset of *textract.Client the provider calls.
type API interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
	StartDocumentAnalysis(ctx context.Context, params *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error)
	GetDocumentAnalysis(ctx context.Context, params *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error)
}

// Form- and table-aware analysis is always requested.
var featureTypes = []types.FeatureType{types.FeatureTypeForms, types.FeatureTypeTables}

// maxResultPages bounds NextToken pagination of a finished job.
const maxResultPages = 100

// Provider implements ports.Analyzer on top of Textract.
type Provider struct {
	api    API
	logger *slog.Logger
}

var _ ports.Analyzer = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger used for partial-result warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New creates a Provider.
func New(api API, opts ...Option) (*Provider, error) {
	if api == nil {
		return nil, errors.New("textract api is required")
	}
	p := &Provider{api: api, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewFromConfig creates a Provider backed by a real Textract client.
func NewFromConfig(cfg aws.Config, opts ...Option) (*Provider, error) {
	return New(textract.NewFromConfig(cfg), opts...)
}

// Analyze runs a synchronous analysis of document.
func (p *Provider) Analyze(ctx context.Context, document []byte) ([]blocks.Block, error) {
	out, err := p.api.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: document},
		FeatureTypes: featureTypes,
	})
	if err != nil {
		return nil, translate(err, "analyze document")
	}
	return ToBlocks(out.Blocks), nil
}

// StartAnalysis submits an asynchronous analysis of s3://bucket/key.
func (p *Provider) StartAnalysis(ctx context.Context, bucket, key string) (string, error) {
	out, err := p.api.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{Bucket: aws.String(bucket), Name: aws.String(key)},
		},
		FeatureTypes: featureTypes,
	})
	if err != nil {
		return "", translate(err, "start document analysis")
	}
	jobID := aws.ToString(out.JobId)
	if jobID == "" {
		return "", providers.NewError(providers.ErrorJobStart, providers.ProviderTextract, "", nil)
	}
	return jobID, nil
}

// GetAnalysis polls a job once. When the job has finished, every remaining
// result page is fetched so Blocks covers the whole document.
func (p *Provider) GetAnalysis(ctx context.Context, jobID string) (*ports.JobResult, error) {
	out, err := p.api.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{JobId: aws.String(jobID)})
	if err != nil {
		return nil, translate(err, "get document analysis")
	}

	res := &ports.JobResult{StatusMessage: aws.ToString(out.StatusMessage)}
	switch out.JobStatus {
	case types.JobStatusSucceeded, types.JobStatusPartialSuccess:
		res.Status = ports.JobSucceeded
	case types.JobStatusFailed:
		res.Status = ports.JobFailed
		return res, nil
	default:
		res.Status = ports.JobInProgress
		return res, nil
	}

	if out.JobStatus == types.JobStatusPartialSuccess {
		p.logger.WarnContext(ctx, "textract job finished with partial results",
			"job_id", jobID,
			"status_message", res.StatusMessage,
		)
	}

	all := out.Blocks
	next := out.NextToken
	for page := 1; next != nil && page < maxResultPages; page++ {
		more, err := p.api.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:     aws.String(jobID),
			NextToken: next,
		})
		if err != nil {
			return nil, translate(err, fmt.Sprintf("get document analysis page %d", page+1))
		}
		all = append(all, more.Blocks...)
		next = more.NextToken
	}
	res.Blocks = ToBlocks(all)
	return res, nil
}

// ToBlocks converts Textract blocks into the provider-neutral block model.
func ToBlocks(in []types.Block) []blocks.Block {
	out := make([]blocks.Block, 0, len(in))
	for _, b := range in {
		blk := blocks.Block{
			ID:              aws.ToString(b.Id),
			Type:            blocks.BlockType(b.BlockType),
			Text:            aws.ToString(b.Text),
			SelectionStatus: blocks.SelectionStatus(b.SelectionStatus),
		}
		for _, et := range b.EntityTypes {
			blk.EntityTypes = append(blk.EntityTypes, blocks.EntityType(et))
		}
		for _, rel := range b.Relationships {
			blk.Relationships = append(blk.Relationships, blocks.Relationship{
				Type: blocks.RelationshipType(rel.Type),
				IDs:  rel.Ids,
			})
		}
		out = append(out, blk)
	}
	return out
}

// translate maps Textract errors onto the extraction error kinds.
func translate(err error, op string) error {
	if errors.Is(err, context.Canceled) {
		return providers.NewError(providers.ErrorInternal, providers.ProviderTextract, "", fmt.Errorf("%s: %w", op, err))
	}

	var (
		unsupported *types.UnsupportedDocumentException
		badDoc      *types.BadDocumentException
		tooLarge    *types.DocumentTooLargeException
		throttled   *types.ThrottlingException
		throughput  *types.ProvisionedThroughputExceededException
		limit       *types.LimitExceededException
		serverErr   *types.InternalServerError
		invalidJob  *types.InvalidJobIdException
		invalidObj  *types.InvalidS3ObjectException
		denied      *types.AccessDeniedException
	)
	switch {
	case errors.As(err, &unsupported), errors.As(err, &badDoc), errors.As(err, &tooLarge):
		return providers.NewError(providers.ErrorUnsupportedDocument, providers.ProviderTextract, "", err)
	case errors.As(err, &throttled), errors.As(err, &throughput), errors.As(err, &limit), errors.As(err, &serverErr):
		return providers.NewError(providers.ErrorProviderOutage, providers.ProviderTextract, "", err)
	case errors.As(err, &invalidJob), errors.As(err, &invalidObj), errors.As(err, &denied):
		return providers.NewError(providers.ErrorInternal, providers.ProviderTextract, "", fmt.Errorf("%s: %w", op, err))
	}
	return providers.NewError(providers.ErrorProviderOutage, providers.ProviderTextract, "", fmt.Errorf("%s: %w", op, err))
}
