package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"paythru/internal/ocr/models"
)

const (
	kindID          = "id"
	kindCertificate = "certificate"

	outputJSON = "json"
	outputYAML = "yaml"
)

var errExtractionFailed = errors.New("extraction failed")

var (
	extractKind      string
	extractMoral     bool
	extractMediaType string
	extractOutput    string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a KYC record from a local document",
	Long: `Analyze a local image or PDF and print the extraction result.

Use --kind id for identification documents and --kind certificate for tax
certificates (add --moral for a company).`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractKind, "kind", "k", kindID, "Document kind (id, certificate)")
	extractCmd.Flags().BoolVar(&extractMoral, "moral", false, "Read the certificate as a company (persona moral)")
	extractCmd.Flags().StringVar(&extractMediaType, "media-type", "", "Media type of the file; detected from its content when empty")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", outputJSON, "Output format (json, yaml)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	kind, err := resolveKind(extractKind, extractMoral)
	if err != nil {
		return err
	}
	if extractOutput != outputJSON && extractOutput != outputYAML {
		return fmt.Errorf("unknown output format %q", extractOutput)
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	mediaType := extractMediaType
	if mediaType == "" {
		mediaType = http.DetectContentType(content)
	}
	doc, err := models.NewRawDocument(content, mediaType, filepath.Base(path))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := cliLogger(cmd)
	svc, err := newExtractor(ctx, log)
	if err != nil {
		return fmt.Errorf("configure extractor: %w", err)
	}

	result := svc.Extract(ctx, doc, kind)
	if err := render(cmd.OutOrStdout(), extractOutput, result); err != nil {
		return err
	}
	if !result.Success {
		return errExtractionFailed
	}
	return nil
}

func resolveKind(kind string, moral bool) (models.Kind, error) {
	switch strings.ToLower(kind) {
	case kindID:
		if moral {
			return "", errors.New("--moral only applies to --kind certificate")
		}
		return models.KindPersonFromID, nil
	case kindCertificate:
		if moral {
			return models.KindCompanyFromTaxCertificate, nil
		}
		return models.KindPersonFromTaxCertificate, nil
	}
	return "", fmt.Errorf("unknown document kind %q (want %s or %s)", kind, kindID, kindCertificate)
}

// render writes result in format. YAML is derived from the JSON encoding so
// both outputs share field names.
func render(w io.Writer, format string, result models.ExtractionResult[any]) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if format == outputYAML {
		raw, err = yaml.JSONToYAML(raw)
		if err != nil {
			return fmt.Errorf("encode result as yaml: %w", err)
		}
	} else {
		raw = append(raw, '\n')
	}
	_, err = w.Write(raw)
	return err
}
