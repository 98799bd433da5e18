package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"paythru/internal/ocr/blocks"
	"paythru/internal/ocr/metrics"
	"paythru/internal/ocr/models"
	"paythru/internal/ocr/ports"
	"paythru/internal/ocr/providers"
)

// Strategy is the provider call shape chosen for a document.
type Strategy string

const (
	StrategySync  Strategy = "sync"
	StrategyAsync Strategy = "async"
)

// Defaults applied when a Config field is left zero.
const (
	DefaultMaxSyncBytes = 5 * 1024 * 1024
	DefaultPollInterval = 1500 * time.Millisecond
	DefaultPollAttempts = 20
)

const tempKeyPrefix = "textract/"

// SelectStrategy picks async for every PDF and for any document at or above
// maxSyncBytes, sync otherwise.
func SelectStrategy(doc *models.RawDocument, maxSyncBytes int64) Strategy {
	if doc.IsPDF() || doc.Size() >= maxSyncBytes {
		return StrategyAsync
	}
	return StrategySync
}

// Config drives strategy selection and polling.
type Config struct {
	Bucket       string
	MaxSyncBytes int64
	PollInterval time.Duration
	PollAttempts int
}

func (c Config) withDefaults() Config {
	if c.MaxSyncBytes <= 0 {
		c.MaxSyncBytes = DefaultMaxSyncBytes
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	return c
}

// Orchestrator runs one provider analysis per call and derives the key/value
// map and transcript from the returned blocks.
type Orchestrator struct {
	analyzer ports.Analyzer
	store    ports.ObjectStore
	cfg      Config
	clock    ports.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	newID    func() string
}

type OrchestratorOption func(*Orchestrator)

func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock replaces the wall clock used for polling delays.
func WithClock(c ports.Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

func WithTracer(t trace.Tracer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// NewOrchestrator creates an Orchestrator. store may be nil when every
// document is expected to take the sync path; an async request then fails
// with a missing-configuration error.
func NewOrchestrator(analyzer ports.Analyzer, store ports.ObjectStore, cfg Config, opts ...OrchestratorOption) (*Orchestrator, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	o := &Orchestrator{
		analyzer: analyzer,
		store:    store,
		cfg:      cfg.withDefaults(),
		clock:    systemClock{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("paythru/internal/ocr/service"),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Analyze selects a strategy for doc, runs it and returns the blocks plus
// their derived views. Every error is an *providers.ExtractionError.
func (o *Orchestrator) Analyze(ctx context.Context, doc *models.RawDocument) (*models.Artifacts, error) {
	ctx, span := o.tracer.Start(ctx, "ocr.analyze", trace.WithAttributes(
		attribute.String("ocr.media_type", doc.MediaType),
		attribute.Int64("ocr.size_bytes", doc.Size()),
	))
	defer span.End()

	if !doc.IsSupported() {
		err := providers.NewError(providers.ErrorUnsupportedFile, "", "", fmt.Errorf("media type %q", doc.MediaType))
		recordSpanError(span, err)
		return nil, err
	}

	strategy := SelectStrategy(doc, o.cfg.MaxSyncBytes)
	span.SetAttributes(attribute.String("ocr.strategy", string(strategy)))
	if o.metrics != nil {
		o.metrics.IncrementStrategy(string(strategy))
	}

	start := o.clock.Now()
	var (
		bs  []blocks.Block
		err error
	)
	if strategy == StrategyAsync {
		bs, err = o.runAsync(ctx, doc)
	} else {
		bs, err = o.runSync(ctx, doc)
	}
	elapsed := o.clock.Now().Sub(start)

	if err != nil {
		o.observeDuration(strategy, "error", elapsed)
		recordSpanError(span, err)
		o.logger.WarnContext(ctx, "document analysis failed",
			"strategy", strategy,
			"media_type", doc.MediaType,
			"size_bytes", doc.Size(),
			"error_kind", providers.KindOf(err),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	o.observeDuration(strategy, "success", elapsed)
	artifacts := models.NewArtifacts(bs)
	span.SetAttributes(
		attribute.Int("ocr.blocks", len(bs)),
		attribute.Int("ocr.pairs", artifacts.KeyValues.Len()),
	)
	o.logger.InfoContext(ctx, "document analyzed",
		"strategy", strategy,
		"media_type", doc.MediaType,
		"size_bytes", doc.Size(),
		"blocks", len(bs),
		"pairs", artifacts.KeyValues.Len(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return artifacts, nil
}

func (o *Orchestrator) runSync(ctx context.Context, doc *models.RawDocument) ([]blocks.Block, error) {
	ctx, span := o.tracer.Start(ctx, "ocr.analyze.sync")
	defer span.End()

	bs, err := o.analyzer.Analyze(ctx, doc.Bytes)
	if err != nil {
		err = asExtractionError(err)
		recordSpanError(span, err)
		return nil, err
	}
	return bs, nil
}

func (o *Orchestrator) runAsync(ctx context.Context, doc *models.RawDocument) (bs []blocks.Block, err error) {
	ctx, span := o.tracer.Start(ctx, "ocr.analyze.async")
	defer span.End()
	defer func() {
		if err != nil {
			recordSpanError(span, err)
		}
	}()

	if o.cfg.Bucket == "" || o.store == nil {
		return nil, providers.NewError(providers.ErrorMissingConfiguration, "", "", nil)
	}

	key := o.objectKey(doc.Name)
	span.SetAttributes(attribute.String("ocr.object_key", key))
	if err := o.store.Put(ctx, o.cfg.Bucket, key, bytes.NewReader(doc.Bytes), doc.MediaType); err != nil {
		var ee *providers.ExtractionError
		if errors.As(err, &ee) {
			return nil, err
		}
		return nil, providers.NewError(providers.ErrorUpload, providers.ProviderS3, "", err)
	}
	defer o.cleanup(ctx, key)

	jobID, err := o.analyzer.StartAnalysis(ctx, o.cfg.Bucket, key)
	if err != nil {
		return nil, asExtractionError(err)
	}
	if jobID == "" {
		return nil, providers.NewError(providers.ErrorJobStart, providers.ProviderTextract, "", nil)
	}
	span.SetAttributes(attribute.String("ocr.job_id", jobID))

	return o.poll(ctx, jobID)
}

// poll queries the job until it reaches a terminal state or the attempt
// ceiling is hit. No delay follows the last attempt.
func (o *Orchestrator) poll(ctx context.Context, jobID string) ([]blocks.Block, error) {
	for attempt := 1; attempt <= o.cfg.PollAttempts; attempt++ {
		res, err := o.analyzer.GetAnalysis(ctx, jobID)
		if err != nil {
			o.observePolls(attempt)
			return nil, asExtractionError(err)
		}

		switch res.Status {
		case ports.JobSucceeded:
			o.observePolls(attempt)
			o.logger.DebugContext(ctx, "analysis job succeeded", "job_id", jobID, "attempts", attempt)
			return res.Blocks, nil
		case ports.JobFailed:
			o.observePolls(attempt)
			return nil, providers.JobFailed(providers.ProviderTextract, res.StatusMessage)
		}

		if attempt == o.cfg.PollAttempts {
			break
		}
		if err := o.clock.Sleep(ctx, o.cfg.PollInterval); err != nil {
			o.observePolls(attempt)
			return nil, providers.NewError(providers.ErrorInternal, providers.ProviderTextract, "",
				fmt.Errorf("polling job %s interrupted: %w", jobID, err))
		}
	}

	o.observePolls(o.cfg.PollAttempts)
	return nil, providers.NewError(providers.ErrorJobTimeout, providers.ProviderTextract, "",
		fmt.Errorf("job %s still running after %d attempts", jobID, o.cfg.PollAttempts))
}

// cleanup deletes the temporary object. It runs on a context detached from
// cancellation so a shutdown mid-poll still removes the object. Failures are
// logged and counted only.
func (o *Orchestrator) cleanup(ctx context.Context, key string) {
	if err := o.store.Delete(context.WithoutCancel(ctx), o.cfg.Bucket, key); err != nil {
		if o.metrics != nil {
			o.metrics.IncrementCleanupFailures()
		}
		o.logger.WarnContext(ctx, "failed to delete temporary analysis object",
			"bucket", o.cfg.Bucket,
			"key", key,
			"error", err,
		)
	}
}

func (o *Orchestrator) objectKey(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf("%s%d-%s-%s", tempKeyPrefix, o.clock.Now().UnixMilli(), o.newID(), safe)
}

func (o *Orchestrator) observeDuration(strategy Strategy, outcome string, d time.Duration) {
	if o.metrics != nil {
		o.metrics.ObserveProviderDuration(string(strategy), outcome, d)
	}
}

func (o *Orchestrator) observePolls(n int) {
	if o.metrics != nil {
		o.metrics.ObservePollAttempts(n)
	}
}

// asExtractionError keeps taxonomy errors as they are and files anything
// else under internal.
func asExtractionError(err error) error {
	var ee *providers.ExtractionError
	if errors.As(err, &ee) {
		return err
	}
	return providers.NewError(providers.ErrorInternal, "", "", err)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(providers.KindOf(err)))
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
