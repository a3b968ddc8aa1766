package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

func TestWebSearch_DisabledWithoutKey(t *testing.T) {
	w := NewWebSearch(WebSearchConfig{}, nil)

	results, err := w.Search(context.Background(), NewInput("data science", domain.QueryClassification{}, "RMIT"))

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, w.Enabled())
}

func TestWebSearch_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var body webSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "site:rmit.edu.au COSC2123 prerequisites", body.Q)
		assert.Equal(t, 5, body.Num)
		assert.Equal(t, "au", body.GL)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]string{
				{"title": "COSC2123 Algorithms and Analysis", "link": "https://www.rmit.edu.au/courses/cosc2123", "snippet": "Prerequisites"},
				{"title": "No link", "link": ""},
				{"title": "Course search", "link": "https://www.rmit.edu.au/search", "snippet": "Find courses"},
			},
		})
	}))
	defer srv.Close()

	w := NewWebSearch(WebSearchConfig{
		APIKey: "secret", URL: srv.URL, Domain: "rmit.edu.au", Locale: "au", Num: 5,
	}, srv.Client())

	cls := domain.QueryClassification{Entities: domain.QueryEntities{CourseCode: "COSC2123"}}
	results, err := w.Search(context.Background(), NewInput("COSC2123 prerequisites", cls, "RMIT"))

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.SourceWeb, results[0].Source)
	assert.Equal(t, "COSC2123", results[0].EntityCode)
	assert.InDelta(t, 0.95, results[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.85, results[1].RelevanceScore, 1e-9)
	assert.Empty(t, results[1].EntityCode)
}

func TestWebSearch_ScoreFloor(t *testing.T) {
	organic := make([]map[string]string, 20)
	for i := range organic {
		organic[i] = map[string]string{"title": "t", "link": "https://rmit.edu.au/" + string(rune('a'+i))}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"organic": organic})
	}))
	defer srv.Close()

	w := NewWebSearch(WebSearchConfig{APIKey: "k", URL: srv.URL}, srv.Client())
	results, err := w.Search(context.Background(), NewInput("x", domain.QueryClassification{}, "RMIT"))

	require.NoError(t, err)
	require.Len(t, results, 20)
	assert.InDelta(t, 0.3, results[19].RelevanceScore, 1e-9)
}

func TestWebSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebSearch(WebSearchConfig{APIKey: "k", URL: srv.URL}, srv.Client())
	_, err := w.Search(context.Background(), NewInput("x", domain.QueryClassification{}, "RMIT"))

	assert.ErrorContains(t, err, "HTTP 500")
}

func TestWebSearch_OwnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	w := NewWebSearch(WebSearchConfig{APIKey: "k", URL: srv.URL, Timeout: 50 * time.Millisecond}, srv.Client())

	start := time.Now()
	_, err := w.Search(context.Background(), NewInput("x", domain.QueryClassification{}, "RMIT"))

	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
