package service

import (
	"context"
	"errors"
	"log/slog"

	"paythru/internal/ocr/builder"
	"paythru/internal/ocr/metrics"
	"paythru/internal/ocr/models"
	"paythru/internal/ocr/providers"
)

// Analyzer is the orchestration step the service depends on.
type Analyzer interface {
	Analyze(ctx context.Context, doc *models.RawDocument) (*models.Artifacts, error)
}

// Service is the caller-facing entry point of the engine. Its methods never
// return Go errors; every failure is folded into the ExtractionResult.
type Service struct {
	analyzer Analyzer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithServiceLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithServiceMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(analyzer Analyzer, opts ...Option) (*Service, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	s := &Service{analyzer: analyzer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ExtractPersonFromID reads a personal identification document.
func (s *Service) ExtractPersonFromID(ctx context.Context, doc *models.RawDocument) models.ExtractionResult[models.PersonDocument] {
	return extract(ctx, s, doc, models.KindPersonFromID, func(a *models.Artifacts) *models.PersonDocument {
		return builder.PersonFromIDDocument(a.KeyValues, a.Transcript)
	})
}

// ExtractFromTaxCertificate reads a tax-registration certificate. moral
// selects the company record; otherwise the person record is built.
func (s *Service) ExtractFromTaxCertificate(ctx context.Context, doc *models.RawDocument, moral bool) models.ExtractionResult[any] {
	if moral {
		return widen(s.ExtractCompany(ctx, doc))
	}
	return widen(extract(ctx, s, doc, models.KindPersonFromTaxCertificate, func(a *models.Artifacts) *models.PersonDocument {
		return builder.PersonFromTaxCertificate(a.KeyValues)
	}))
}

// ExtractCompany reads a company's tax-registration certificate.
func (s *Service) ExtractCompany(ctx context.Context, doc *models.RawDocument) models.ExtractionResult[models.CompanyDocument] {
	return extract(ctx, s, doc, models.KindCompanyFromTaxCertificate, func(a *models.Artifacts) *models.CompanyDocument {
		return builder.CompanyFromTaxCertificate(a.KeyValues)
	})
}

// Extract dispatches on kind. An unknown kind yields a failed result.
func (s *Service) Extract(ctx context.Context, doc *models.RawDocument, kind models.Kind) models.ExtractionResult[any] {
	switch kind {
	case models.KindPersonFromID:
		return widen(s.ExtractPersonFromID(ctx, doc))
	case models.KindPersonFromTaxCertificate:
		return s.ExtractFromTaxCertificate(ctx, doc, false)
	case models.KindCompanyFromTaxCertificate:
		return s.ExtractFromTaxCertificate(ctx, doc, true)
	}
	return models.Failed[any]("Tipo de documento no soportado: " + string(kind))
}

func extract[T any](ctx context.Context, s *Service, doc *models.RawDocument, kind models.Kind, build func(*models.Artifacts) *T) models.ExtractionResult[T] {
	if doc == nil {
		s.observe(kind, "invalid")
		return models.Failed[T](providers.UserMessage(providers.NewError(providers.ErrorUnsupportedFile, "", "", nil)))
	}

	artifacts, err := s.analyzer.Analyze(ctx, doc)
	if err != nil {
		s.observe(kind, string(providers.KindOf(err)))
		return models.Failed[T](providers.UserMessage(err))
	}

	record := build(artifacts)
	s.observe(kind, "success")
	if s.metrics != nil {
		s.metrics.ObservePairs(string(kind), artifacts.KeyValues.Len())
	}
	s.logger.InfoContext(ctx, "document extracted",
		"kind", kind,
		"pairs", artifacts.KeyValues.Len(),
		"transcript_chars", len(artifacts.Transcript),
	)
	return models.Succeeded(record, artifacts.Transcript)
}

func (s *Service) observe(kind models.Kind, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveExtraction(string(kind), outcome)
	}
}

// widen erases the record type so differently typed results share one
// return type.
func widen[T any](r models.ExtractionResult[T]) models.ExtractionResult[any] {
	out := models.ExtractionResult[any]{Success: r.Success, Error: r.Error, RawText: r.RawText}
	if r.Data != nil {
		var data any = r.Data
		out.Data = &data
	}
	return out
}
