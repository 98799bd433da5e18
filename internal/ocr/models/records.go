package models

import (
	"strings"

	"paythru/internal/ocr/blocks"
)

// Country is the operating jurisdiction every parsed address defaults to.
const Country = "México"

// Address is a postal address. Any component may be empty after parsing.
type Address struct {
	Direccion    string `json:"direccion"`
	Colonia      string `json:"colonia"`
	Ciudad       string `json:"ciudad"`
	Estado       string `json:"estado"`
	Pais         string `json:"pais"`
	CodigoPostal string `json:"codigo_postal"`
}

// Complete joins the non-empty components into a single display line.
func (a *Address) Complete() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Direccion, a.Colonia, a.Ciudad, a.Estado, a.CodigoPostal, a.Pais} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// PersonDocument is what could be read about a natural person from an ID or a
// tax certificate. Empty fields were not found.
type PersonDocument struct {
	Nombre          string       `json:"nombre_representante_legal,omitempty"`
	Apellido        string       `json:"apellido_representante_legal,omitempty"`
	FechaNacimiento string       `json:"fecha_de_nacimiento,omitempty"`
	RFC             string       `json:"rfc,omitempty"`
	CURP            string       `json:"curp,omitempty"`
	NumeroDocumento *int64       `json:"numero_documento,omitempty"`
	TipoDocumento   DocumentType `json:"tipo_documento,omitempty"`
	Nacionalidad    string       `json:"nacionalidad,omitempty"`
	DireccionFiscal *Address     `json:"direccion_fiscal,omitempty"`
	GiroMercantil   string       `json:"giro_mercantil,omitempty"`
}

// CompanyDocument is what could be read about a legal entity from its tax
// certificate. Empty fields were not found.
type CompanyDocument struct {
	NombreCompania     string   `json:"nombre_compañia,omitempty"`
	NombreLegal        string   `json:"nombre_legal_compañia,omitempty"`
	FechaConstitucion  string   `json:"fecha_de_constitucion,omitempty"`
	RFC                string   `json:"rfc_entidad_legal,omitempty"`
	DireccionFiscal    *Address `json:"direccion_fiscal,omitempty"`
	DireccionOperativa *Address `json:"direccion_operativa,omitempty"`
	GiroMercantil      string   `json:"giro_mercantil,omitempty"`
}

// Artifacts are the provider output of one analysis plus its derived views.
type Artifacts struct {
	Blocks     []blocks.Block
	KeyValues  *blocks.KeyValueMap
	Transcript string
}

// NewArtifacts derives the key/value map and transcript from raw blocks.
func NewArtifacts(bs []blocks.Block) *Artifacts {
	return &Artifacts{
		Blocks:     bs,
		KeyValues:  blocks.ExtractPairs(bs),
		Transcript: blocks.CollectText(bs),
	}
}

// ExtractionResult is returned to callers of the extraction service. A
// successful result always carries Data; a failed one carries Error and never
// Data.
type ExtractionResult[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	RawText string `json:"rawText,omitempty"`
}

// Succeeded builds a successful result. A nil data is replaced with the zero
// record so Success never travels without Data.
func Succeeded[T any](data *T, rawText string) ExtractionResult[T] {
	if data == nil {
		data = new(T)
	}
	return ExtractionResult[T]{Success: true, Data: data, RawText: rawText}
}

// Failed builds a failed result carrying msg.
func Failed[T any](msg string) ExtractionResult[T] {
	if msg == "" {
		msg = "unknown error"
	}
	return ExtractionResult[T]{Success: false, Error: msg}
}
