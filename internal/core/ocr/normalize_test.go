package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapses spaces and tabs", "Application \t  No.   12345", "Application No. 12345"},
		{"strips around line breaks", "  AFFIDAVIT OF MALE  \r\n   I, John Smith,  ", "AFFIDAVIT OF MALE\nI, John Smith,"},
		{"keeps blank lines", "a\n\n\nb", "a\n\n\nb"},
		{"preserves case and punctuation", "No. 0123 -- O'Brien", "No. 0123 -- O'Brien"},
		{"only whitespace", " \t\n \r\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := "  I,   Jane\tDoe , of lawful age \r\n\r\n day of June, 1952 "
	once := Normalize(in)
	assert.Equal(t, once, Normalize(once))
}
