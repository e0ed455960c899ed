package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidMetadataProfile(t *testing.T) {
	assert.True(t, IsValidMetadataProfile(MetadataProfileBibliographic))
	assert.True(t, IsValidMetadataProfile(MetadataProfileAbstract))
	assert.False(t, IsValidMetadataProfile("citation"))
	assert.False(t, IsValidMetadataProfile(""))
}

func TestMetadataProfileKeys(t *testing.T) {
	assert.Equal(t,
		[]string{"title", "authors", "journal_name", "year", "doi"},
		MetadataProfileBibliographic.Keys())
	assert.Equal(t,
		[]string{"title", "authors", "abstract"},
		MetadataProfileAbstract.Keys())
}

func TestCoerceYear(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected *int
	}{
		{"plain year", "2017", intPtr(2017)},
		{"whitespace trimmed", "  1998 ", intPtr(1998)},
		{"empty string", "", nil},
		{"whitespace only", "   ", nil},
		{"non-digit characters", "2017a", nil},
		{"negative year", "-44", nil},
		{"prose answer", "published in 2017", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceYear(tt.raw)
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.expected, *got)
			}
		})
	}
}

func intPtr(v int) *int { return &v }
