package providers

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of ways an extraction can fail. Adapters
// translate SDK errors into a kind; everything above them matches on kind
// only.
type ErrorKind string

const (
	// ErrorUnsupportedFile: media type is neither image/* nor application/pdf
	ErrorUnsupportedFile ErrorKind = "unsupported_file"

	// ErrorUnsupportedDocument: provider rejected the content (encrypted, corrupt, too large)
	ErrorUnsupportedDocument ErrorKind = "unsupported_document"

	// ErrorMissingConfiguration: async path requested without a temporary bucket
	ErrorMissingConfiguration ErrorKind = "missing_configuration"

	// ErrorJobStart: provider did not return a job handle
	ErrorJobStart ErrorKind = "job_start"

	// ErrorJobFailed: provider reported the async job as failed
	ErrorJobFailed ErrorKind = "job_failed"

	// ErrorJobTimeout: polling ran out of attempts before a terminal state
	ErrorJobTimeout ErrorKind = "job_timeout"

	// ErrorUpload: the temporary object could not be stored
	ErrorUpload ErrorKind = "upload"

	// ErrorProviderOutage: provider unreachable, throttling or 5xx
	ErrorProviderOutage ErrorKind = "provider_outage"

	// ErrorInternal: anything else
	ErrorInternal ErrorKind = "internal"
)

// Provider identifiers used in errors, logs and metrics.
const (
	ProviderTextract = "textract"
	ProviderS3       = "s3"
)

// User-facing messages, in the language of the documents being processed.
var defaultMessages = map[ErrorKind]string{
	ErrorUnsupportedFile:      "Formato de archivo no soportado. Por favor sube una imagen (PNG, JPEG, GIF, WEBP) o PDF.",
	ErrorUnsupportedDocument:  "Textract rechazó el documento: formato no soportado (PDF cifrado/corrupto o fuera de límites). Usa PDF sin contraseña, <=5MB, o una imagen.",
	ErrorMissingConfiguration: "Falta configurar AWS_TEXTRACT_BUCKET para usar el flujo asíncrono de Textract.",
	ErrorJobStart:             "No se pudo iniciar el trabajo asíncrono de Textract (JobId ausente).",
	ErrorJobFailed:            "Textract async job failed: unknown error",
	ErrorJobTimeout:           "El trabajo asíncrono de Textract no finalizó a tiempo. Intenta de nuevo o reduce el tamaño del documento.",
	ErrorUpload:               "No se pudo subir el documento para su análisis. Intenta de nuevo.",
	ErrorProviderOutage:       "El servicio de análisis de documentos no está disponible. Intenta de nuevo más tarde.",
	ErrorInternal:             "No se pudo procesar el documento.",
}

// ExtractionError wraps an extraction failure with its kind.
type ExtractionError struct {
	Kind       ErrorKind
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("ocr %s [%s]: %s: %v", e.ProviderID, e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("ocr %s [%s]: %s", e.ProviderID, e.Kind, e.Message)
}

// Unwrap supports error unwrapping
func (e *ExtractionError) Unwrap() error {
	return e.Underlying
}

// NewError creates an extraction error. An empty message is replaced with
// the kind's default user-facing message.
func NewError(kind ErrorKind, providerID, message string, underlying error) *ExtractionError {
	if message == "" {
		message = defaultMessages[kind]
	}
	retryable := kind == ErrorJobStart ||
		kind == ErrorJobTimeout ||
		kind == ErrorProviderOutage

	return &ExtractionError{
		Kind:       kind,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// JobFailed builds the error for an async job the provider reported as failed.
func JobFailed(providerID, statusMessage string) *ExtractionError {
	if statusMessage == "" {
		statusMessage = "unknown error"
	}
	return NewError(ErrorJobFailed, providerID, "Textract async job failed: "+statusMessage, nil)
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}

// KindOf extracts the error kind from an error
func KindOf(err error) ErrorKind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ErrorInternal
}

// UserMessage returns the message to show the person who uploaded the
// document. Errors outside the taxonomy get the generic internal message.
func UserMessage(err error) string {
	var ee *ExtractionError
	if errors.As(err, &ee) && ee.Message != "" {
		return ee.Message
	}
	return defaultMessages[ErrorInternal]
}
