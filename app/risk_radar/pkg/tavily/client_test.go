package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
)

func TestClient_Search(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tv-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(SearchResponse{Results: []SearchResult{
			{Title: "Acme fined", URL: "https://www.reuters.com/acme", Content: "Regulators fined Acme.", PublishedDate: "2025-05-01"},
		}})
	}))
	defer srv.Close()

	c := NewClient("tv-key", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), &search.Request{
		Query: "Acme", Topic: "news", MaxResults: 50, StartDate: "2025-04-01", EndDate: "2025-05-01",
	})
	require.NoError(t, err)

	assert.Equal(t, `"Acme"`, got.Query)
	assert.Equal(t, "news", got.Topic)
	assert.Equal(t, 20, got.MaxResults)
	assert.Equal(t, "basic", got.SearchDepth)
	assert.Equal(t, "2025-04-01", got.StartDate)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "www.reuters.com", resp.Results[0].Source)
	assert.Equal(t, "2025-05-01", resp.Results[0].PublishedDate)
}

func TestClient_SearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), &search.Request{Query: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
