package models

import (
	"strings"

	dErrors "paythru/pkg/domain-errors"
)

const (
	MediaTypePDF   = "application/pdf"
	mediaTypeImage = "image/"
)

// RawDocument is an uploaded file as received at the boundary. It is built
// once per request and never inspected for its type again downstream.
type RawDocument struct {
	Bytes     []byte
	MediaType string
	Name      string
}

// NewRawDocument validates and normalizes an uploaded file. The media type is
// lower-cased and stripped of parameters ("image/png; q=1" -> "image/png").
func NewRawDocument(content []byte, mediaType, name string) (*RawDocument, error) {
	if len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "document content is required")
	}
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "document"
	}
	return &RawDocument{Bytes: content, MediaType: mt, Name: name}, nil
}

func (d *RawDocument) IsPDF() bool {
	return d.MediaType == MediaTypePDF
}

func (d *RawDocument) IsImage() bool {
	return strings.HasPrefix(d.MediaType, mediaTypeImage)
}

// IsSupported reports whether the provider accepts the media type at all.
func (d *RawDocument) IsSupported() bool {
	return d.IsImage() || d.IsPDF()
}

func (d *RawDocument) Size() int64 {
	return int64(len(d.Bytes))
}

// DocumentType classifies a personal identification document.
type DocumentType string

const (
	DocumentTypePassport      DocumentType = "pasaporte"
	DocumentTypeVoterID       DocumentType = "ine"
	DocumentTypeDriverLicense DocumentType = "licencia"
	DocumentTypeMilitaryCard  DocumentType = "cartilla_militar"
)

// Kind selects which record builder applies to an analyzed document.
type Kind string

const (
	KindPersonFromID              Kind = "person_from_id"
	KindPersonFromTaxCertificate  Kind = "person_from_tax_certificate"
	KindCompanyFromTaxCertificate Kind = "company_from_tax_certificate"
)

// IsValid checks if the kind is one of the supported builders.
func (k Kind) IsValid() bool {
	switch k {
	case KindPersonFromID, KindPersonFromTaxCertificate, KindCompanyFromTaxCertificate:
		return true
	}
	return false
}
