// Package importer parses bulk input for keywords, service areas and
// service offerings. Input arrives as pasted text or as an .xlsx workbook.
package importer

import (
	"strings"
)

// SplitFields splits one input line into trimmed fields. A tab anywhere in the
// line means it came from a spreadsheet paste and only tabs delimit;
// otherwise commas do.
func SplitFields(line string) []string {
	sep := ","
	if strings.Contains(line, "\t") {
		sep = "\t"
	}
	parts := strings.Split(line, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Pair is a bilingual value: the primary (English) form and its Spanish peer.
type Pair struct {
	Primary   string
	Secondary string
}

// ParsePair parses "primary, secondary". Both columns are required; columns
// past the second are ignored.
func ParsePair(line string) (Pair, bool) {
	fields := SplitFields(line)
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return Pair{}, false
	}
	return Pair{Primary: fields[0], Secondary: fields[1]}, true
}

// FormatPair renders a pair back into retry text.
func FormatPair(p Pair) string {
	return p.Primary + ", " + p.Secondary
}

// ParseSingle parses a line holding one value, such as a monolingual keyword.
func ParseSingle(line string) (string, bool) {
	fields := SplitFields(line)
	if fields[0] == "" {
		return "", false
	}
	return fields[0], true
}

// Area is one service-area line: "City, State[, County]".
type Area struct {
	City   string
	State  string
	County string
}

// ParseArea parses a service-area line. City is required.
func ParseArea(line string) (Area, bool) {
	fields := SplitFields(line)
	if fields[0] == "" {
		return Area{}, false
	}
	a := Area{City: fields[0]}
	if len(fields) > 1 {
		a.State = fields[1]
	}
	if len(fields) > 2 {
		a.County = fields[2]
	}
	return a, true
}

// FormatArea renders an area back into retry text.
func FormatArea(a Area) string {
	parts := []string{a.City}
	if a.State != "" || a.County != "" {
		parts = append(parts, a.State)
	}
	if a.County != "" {
		parts = append(parts, a.County)
	}
	return strings.Join(parts, ", ")
}

// Service is one service-offering line: "Name[, Name in Spanish]".
type Service struct {
	Name   string
	NameES string
}

// ParseService parses a service-offering line. The Spanish name is optional.
func ParseService(line string) (Service, bool) {
	fields := SplitFields(line)
	if fields[0] == "" {
		return Service{}, false
	}
	s := Service{Name: fields[0]}
	if len(fields) > 1 {
		s.NameES = fields[1]
	}
	return s, true
}

// FormatService renders a service back into retry text.
func FormatService(s Service) string {
	if s.NameES == "" {
		return s.Name
	}
	return s.Name + ", " + s.NameES
}
