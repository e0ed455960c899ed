package domain

import (
	"strconv"
	"strings"
)

// MetadataProfile selects which bibliographic fields the extractor asks for.
type MetadataProfile string

const (
	// MetadataProfileBibliographic extracts title, authors, journal name,
	// year, and DOI.
	MetadataProfileBibliographic MetadataProfile = "bibliographic"
	// MetadataProfileAbstract extracts title, authors, and abstract.
	MetadataProfileAbstract MetadataProfile = "abstract"
)

// Metadata holds the bibliographic fields extracted from a document's chunks.
// Fields outside the active profile stay empty.
type Metadata struct {
	Title       string
	Authors     string
	JournalName string
	Year        *int
	DOI         string
	Abstract    string
}

// IsValidMetadataProfile checks if a MetadataProfile is valid
func IsValidMetadataProfile(p MetadataProfile) bool {
	switch p {
	case MetadataProfileBibliographic, MetadataProfileAbstract:
		return true
	}
	return false
}

// Keys returns the JSON keys the language model is asked to produce for the
// profile, in prompt order.
func (p MetadataProfile) Keys() []string {
	if p == MetadataProfileAbstract {
		return []string{"title", "authors", "abstract"}
	}
	return []string{"title", "authors", "journal_name", "year", "doi"}
}

// CoerceYear parses an extracted year string into an integer. Strings that
// are not purely decimal digits (including the empty string) yield nil.
func CoerceYear(raw string) *int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return nil
		}
	}
	year, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil
	}
	return &year
}
