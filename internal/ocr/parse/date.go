// Package parse turns free-form document text into dates, addresses and
// national identifiers. Parsers never fail: an unrecognized input is reported
// as absent.
package parse

import (
	"regexp"
	"strings"

	"paythru/internal/ocr/matcher"
)

type numericDate struct {
	re        *regexp.Regexp
	yearFirst bool
}

// Tried in order; the first match wins.
var numericDates = []numericDate{
	{re: regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)},
	{re: regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), yearFirst: true},
	{re: regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`)},
	{re: regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`), yearFirst: true},
}

var (
	textualDate   = regexp.MustCompile(`(\d{1,2})\s*(?:de\s*)?([a-zñ]+)\s*(?:de\s*)?(\d{4})`)
	datePunct     = regexp.MustCompile(`[,.]`)
	dateSpaceRuns = regexp.MustCompile(`\s+`)
)

var spanishMonths = map[string]string{
	"enero":      "01",
	"febrero":    "02",
	"marzo":      "03",
	"abril":      "04",
	"mayo":       "05",
	"junio":      "06",
	"julio":      "07",
	"agosto":     "08",
	"septiembre": "09",
	"setiembre":  "09",
	"octubre":    "10",
	"noviembre":  "11",
	"diciembre":  "12",
}

// ParseDate converts "15/03/2020", "2020-03-15", "15-03-2020", "2020/03/15"
// or "15 de marzo de 2020" into "2020-03-15". Day and month values are not
// range-checked.
func ParseDate(text string) (string, bool) {
	normalized := normalizeDateText(text)
	if normalized == "" {
		return "", false
	}

	for _, f := range numericDates {
		m := f.re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		if f.yearFirst {
			return isoDate(m[1], m[2], m[3]), true
		}
		return isoDate(m[3], m[2], m[1]), true
	}

	m := textualDate.FindStringSubmatch(normalized)
	if m == nil {
		return "", false
	}
	month, ok := spanishMonths[m[2]]
	if !ok {
		return "", false
	}
	return isoDate(m[3], month, m[1]), true
}

func normalizeDateText(text string) string {
	s := matcher.Fold(strings.TrimSpace(text))
	s = datePunct.ReplaceAllString(s, " ")
	s = dateSpaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func isoDate(year, month, day string) string {
	return year + "-" + pad2(month) + "-" + pad2(day)
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
