package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"paythru/internal/ocr/models"
	"paythru/internal/ocr/providers/s3store"
	"paythru/internal/ocr/providers/textract"
	"paythru/internal/ocr/service"
	"paythru/internal/platform/awsconfig"
	"paythru/internal/platform/config"
	"paythru/internal/platform/logger"
)

// extractor is the part of the extraction service the CLI drives.
type extractor interface {
	Extract(ctx context.Context, doc *models.RawDocument, kind models.Kind) models.ExtractionResult[any]
}

// newExtractor builds the service from the environment. Tests replace it.
var newExtractor = func(ctx context.Context, log *slog.Logger) (extractor, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	awsCfg, err := awsconfig.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	provider, err := textract.NewFromConfig(awsCfg, textract.WithLogger(log))
	if err != nil {
		return nil, err
	}
	store, err := s3store.NewFromConfig(awsCfg, s3store.WithLogger(log))
	if err != nil {
		return nil, err
	}
	orch, err := service.NewOrchestrator(provider, store, service.Config{
		Bucket:       cfg.OCR.Bucket,
		MaxSyncBytes: cfg.OCR.MaxSyncBytes,
		PollInterval: cfg.OCR.PollInterval,
		PollAttempts: cfg.OCR.PollAttempts,
	}, service.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return service.New(orch, service.WithServiceLogger(log))
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "ocrctl",
	Short:         "Run KYC document extraction against local files",
	Long:          `ocrctl sends a local ID or tax certificate through the same analysis pipeline the server uses and prints the extraction result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func cliLogger(cmd *cobra.Command) *slog.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), logLevel, "text")
}
