// Package builder composes the matcher and parsers into partially filled KYC
// records. Labeled key/value fields always win; transcript heuristics only
// fill fields that are still empty. A field that cannot be found is left
// empty and is never an error.
package builder

import (
	"regexp"
	"strconv"
	"strings"

	"paythru/internal/ocr/blocks"
	"paythru/internal/ocr/matcher"
	"paythru/internal/ocr/models"
	"paythru/internal/ocr/parse"
)

// LocalNationality is assumed for ID documents that mention the country.
const LocalNationality = "Mexicana"

var nonDigits = regexp.MustCompile(`\D`)

type documentKeyword struct {
	pattern *regexp.Regexp
	docType models.DocumentType
}

func keyword(phrase string, t models.DocumentType) documentKeyword {
	return documentKeyword{
		pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`),
		docType: t,
	}
}

// Checked in order against the folded transcript.
var documentKeywords = []documentKeyword{
	keyword("pasaporte", models.DocumentTypePassport),
	keyword("passport", models.DocumentTypePassport),
	keyword("ine", models.DocumentTypeVoterID),
	keyword("credencial para votar", models.DocumentTypeVoterID),
	keyword("licencia de conducir", models.DocumentTypeDriverLicense),
	keyword("driver", models.DocumentTypeDriverLicense),
	keyword("cartilla militar", models.DocumentTypeMilitaryCard),
	keyword("military", models.DocumentTypeMilitaryCard),
}

// DetectDocumentType classifies an ID document by keywords in its transcript.
func DetectDocumentType(transcript string) models.DocumentType {
	folded := matcher.Fold(transcript)
	for _, k := range documentKeywords {
		if k.pattern.MatchString(folded) {
			return k.docType
		}
	}
	return ""
}

var (
	idBirthDate   = matcher.ContainsAny("nacimiento", "dob")
	idAnyDate     = matcher.ContainsAny("fecha")
	idDocumentNum = matcher.ContainsAny("documento", "id")
)

// PersonFromIDDocument builds a person record from an ID card or passport.
func PersonFromIDDocument(kv *blocks.KeyValueMap, transcript string) *models.PersonDocument {
	entries := matcher.Normalize(kv)

	p := &models.PersonDocument{
		Nombre:          entries.Find("nombre"),
		Apellido:        entries.Find("apellido"),
		RFC:             entries.Find("rfc"),
		CURP:            entries.Find("curp"),
		NumeroDocumento: documentNumber(entries),
		Nacionalidad:    entries.Find("nacionalidad"),
	}
	if d, ok := parse.ParseDate(matcher.Prefer(entries, idBirthDate, idAnyDate)); ok {
		p.FechaNacimiento = d
	}

	if p.RFC == "" || p.CURP == "" {
		ids := parse.ParseIdentifiers(transcript)
		if p.RFC == "" {
			p.RFC = ids.RFC
		}
		if p.CURP == "" {
			p.CURP = ids.CURP
		}
	}

	p.TipoDocumento = DetectDocumentType(transcript)
	if p.Nacionalidad == "" && strings.Contains(matcher.Fold(transcript), "mexico") {
		p.Nacionalidad = LocalNationality
	}
	return p
}

// documentNumber returns the digits of the first document/id labeled value
// that has any.
func documentNumber(entries matcher.Entries) *int64 {
	for _, e := range entries {
		if !idDocumentNum(e.Folded) {
			continue
		}
		if n, ok := parseDigits(e.Value); ok {
			return &n
		}
	}
	return nil
}

func parseDigits(s string) (int64, bool) {
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

var (
	legalName      = matcher.ContainsAny("denominación", "razón social", "legal")
	tradeName      = matcher.ContainsAny("nombre comercial")
	legalNameLoose = matcher.ContainsAny("razon")
	operationsDate = matcher.ContainsAny("inicio de operaciones", "fecha de constitución")
	fiscalAddress  = matcher.ContainsAny("domicilio fiscal", "dirección fiscal")
	operatingAddr  = matcher.ContainsAll("domicilio", "operativa")
	activity       = matcher.ContainsAny("giro", "actividad")
)

// CompanyFromTaxCertificate builds a legal-entity record from a tax-registration
// certificate.
func CompanyFromTaxCertificate(kv *blocks.KeyValueMap) *models.CompanyDocument {
	entries := matcher.Normalize(kv)

	c := &models.CompanyDocument{
		NombreLegal:    matcher.FirstMatch(entries, legalName),
		NombreCompania: matcher.Prefer(entries, tradeName, legalName),
		RFC:            entries.Find("rfc"),
		GiroMercantil:  matcher.FirstMatch(entries, activity),
	}
	if c.NombreLegal == "" {
		c.NombreLegal = matcher.FirstMatch(entries, legalNameLoose)
	}

	if d, ok := parse.ParseDate(matcher.FirstMatch(entries, operationsDate)); ok {
		c.FechaConstitucion = d
	}

	if v := matcher.FirstMatch(entries, fiscalAddress); v != "" {
		c.DireccionFiscal = parse.ParseAddress(v)
	} else {
		c.DireccionFiscal = parse.BuildAddressFromCSF(entries)
	}
	if v := matcher.FirstMatch(entries, operatingAddr); v != "" {
		c.DireccionOperativa = parse.ParseAddress(v)
	}
	return c
}

var (
	csfGivenNames    = matcher.ContainsAny("nombre (s)")
	csfFirstSurname  = matcher.ContainsAny("primer apellido")
	csfSecondSurname = matcher.ContainsAny("segundo apellido")
	csfInternalID    = matcher.ContainsAny("idcif")
	csfAnyAddress    = matcher.ContainsAny("domicilio", "dirección")
)

// PersonFromTaxCertificate builds a natural-person record from a
// tax-registration certificate.
func PersonFromTaxCertificate(kv *blocks.KeyValueMap) *models.PersonDocument {
	entries := matcher.Normalize(kv)

	surnames := nonEmpty(
		matcher.FirstMatch(entries, csfFirstSurname),
		matcher.FirstMatch(entries, csfSecondSurname),
	)

	p := &models.PersonDocument{
		Nombre:        matcher.FirstMatch(entries, csfGivenNames),
		Apellido:      strings.Join(surnames, " "),
		CURP:          entries.Find("curp"),
		RFC:           entries.Find("rfc"),
		GiroMercantil: matcher.FirstMatch(entries, activity),
	}
	if n, ok := parseDigits(matcher.FirstMatch(entries, csfInternalID)); ok {
		p.NumeroDocumento = &n
	}

	p.DireccionFiscal = parse.BuildAddressFromCSF(entries)
	if p.DireccionFiscal == nil {
		p.DireccionFiscal = parse.ParseAddress(matcher.FirstMatch(entries, csfAnyAddress))
	}
	return p
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
