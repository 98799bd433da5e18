package parse

import (
	"regexp"
	"strings"

	"paythru/internal/ocr/matcher"
	"paythru/internal/ocr/models"
)

var (
	addressSeparators = regexp.MustCompile(`[,\n]+`)
	postalCode        = regexp.MustCompile(`\d{5}`)
)

// ParseAddress splits a free-text address on commas and newlines and maps
// the segments positionally: street, neighborhood, city, state. The postal
// code is the first five-digit run of the last segment. Only empty input
// yields nil.
func ParseAddress(text string) *models.Address {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var segments []string
	for _, s := range addressSeparators.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}

	at := func(i int) string {
		if i < len(segments) {
			return segments[i]
		}
		return ""
	}

	addr := &models.Address{
		Direccion: at(0),
		Colonia:   at(1),
		Ciudad:    at(2),
		Estado:    at(3),
		Pais:      models.Country,
	}
	if len(segments) > 0 {
		addr.CodigoPostal = postalCode.FindString(segments[len(segments)-1])
	}
	return addr
}

// Labels printed on the domicile section of a tax-registration certificate.
var (
	csfRoadName      = matcher.ContainsAny("nombre de vialidad")
	csfRoadType      = matcher.ContainsAny("tipo de vialidad")
	csfExterior      = matcher.ContainsAny("número exterior")
	csfInterior      = matcher.ContainsAny("número interior")
	csfNeighborhood  = matcher.ContainsAny("nombre de la colonia")
	csfLocality      = matcher.ContainsAny("nombre de la localidad")
	csfMunicipality  = matcher.ContainsAny("nombre del municipio", "demarcación territorial")
	csfState         = matcher.ContainsAny("nombre de la entidad federativa")
	csfPostalCode    = matcher.ContainsAny("código postal")
	csfBetweenStreet = matcher.ContainsAny("entre calle")
	csfAndStreet     = matcher.ContainsAny("y calle")
)

// BuildAddressFromCSF assembles an address from the labeled domicile fields
// of a tax-registration certificate. It returns nil when none of street,
// neighborhood, city, state or postal code could be found.
func BuildAddressFromCSF(entries matcher.Entries) *models.Address {
	find := func(p matcher.Predicate) string {
		return matcher.FirstMatch(entries, p)
	}

	roadName := find(csfRoadName)
	roadType := find(csfRoadType)
	exterior := find(csfExterior)
	interior := find(csfInterior)
	colonia := find(csfNeighborhood)
	localidad := find(csfLocality)
	municipio := find(csfMunicipality)
	estado := find(csfState)
	cp := find(csfPostalCode)
	between := find(csfBetweenStreet)
	andStreet := find(csfAndStreet)

	// Some certificates print the postal code inside the label cell, leaving
	// the value cell with whatever text the provider paired it with.
	if postalCode.FindString(cp) == "" {
		if e, ok := entries.Lookup(csfPostalCode); ok {
			if inline := postalCode.FindString(e.Key); inline != "" {
				cp = inline
			}
		}
	}

	var parts []string
	if road := strings.TrimSpace(joinNonEmpty(" ", roadType, roadName)); road != "" {
		parts = append(parts, road)
	}
	if exterior != "" {
		parts = append(parts, "#"+exterior)
	}
	if interior != "" {
		parts = append(parts, "Int "+interior)
	}
	switch {
	case between != "" && andStreet != "":
		parts = append(parts, "Entre "+between+" y "+andStreet)
	case between != "":
		parts = append(parts, "Entre "+between)
	case andStreet != "":
		parts = append(parts, "Cerca de "+andStreet)
	}

	direccion := strings.Join(parts, ", ")
	ciudad := localidad
	if ciudad == "" {
		ciudad = municipio
	}

	if direccion == "" && colonia == "" && ciudad == "" && estado == "" && cp == "" {
		return nil
	}

	return &models.Address{
		Direccion:    direccion,
		Colonia:      colonia,
		Ciudad:       ciudad,
		Estado:       estado,
		Pais:         models.Country,
		CodigoPostal: cp,
	}
}

func joinNonEmpty(sep string, values ...string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
