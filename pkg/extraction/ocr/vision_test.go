package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/images:annotate"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"responses":[{"fullTextAnnotation":{"text":"WBC 7.2"}}]}`))
	}))
	defer srv.Close()

	text, err := NewVisionClient("k").WithBaseURL(srv.URL).ImageText(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "WBC 7.2", text)
}

func TestDocumentPagesBatchesAndKeepsPageErrors(t *testing.T) {
	var batches [][]int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Requests []struct {
				Pages []int `json:"pages"`
			} `json:"requests"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		pages := body.Requests[0].Pages
		batches = append(batches, pages)

		if pages[0] == 1 {
			_, _ = w.Write([]byte(`{"responses":[{"totalPages":6,"responses":[
				{"fullTextAnnotation":{"text":"p1"},"context":{"pageNumber":1}},
				{"error":{"code":3,"message":"bad page"},"context":{"pageNumber":2}},
				{"fullTextAnnotation":{"text":"p3"},"context":{"pageNumber":3}},
				{"context":{"pageNumber":4}},
				{"fullTextAnnotation":{"text":"p5"},"context":{"pageNumber":5}}
			]}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"responses":[{"totalPages":6,"responses":[
			{"fullTextAnnotation":{"text":"p6"},"context":{"pageNumber":6}}
		]}]}`))
	}))
	defer srv.Close()

	pages, err := NewVisionClient("k").WithBaseURL(srv.URL).DocumentPages(context.Background(), []byte("pdf"), "application/pdf")
	require.NoError(t, err)

	require.Len(t, batches, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, batches[0])
	assert.Equal(t, 6, batches[1][0])

	require.Len(t, pages, 6)
	assert.Equal(t, "p1", pages[0].Text)
	assert.Error(t, pages[1].Err)
	assert.Equal(t, "", pages[3].Text)
	assert.Equal(t, 6, pages[5].Page)
}

func TestVisionRequiresKey(t *testing.T) {
	_, err := NewVisionClient("").ImageText(context.Background(), []byte("x"), "image/png")
	assert.Error(t, err)
}
