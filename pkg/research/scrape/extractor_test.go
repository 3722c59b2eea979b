package scrape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.nhs.uk/conditions/eczema/", true},
		{"http://example.org", true},
		{"ftp://example.org/file", false},
		{"http://localhost:8080", false},
		{"http://127.0.0.1/admin", false},
		{"http://192.168.1.10", false},
		{"http://172.20.0.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := validateURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestExtractRejectsPrivateTargetsWithoutFetching(t *testing.T) {
	_, err := NewPageExtractor().Extract(context.Background(), "http://127.0.0.1:1/page")
	assert.ErrorContains(t, err, "localhost")
}
