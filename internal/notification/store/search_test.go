package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumatch-notifications/internal/models"
)

func newESServer(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestHistoryIndex_Index(t *testing.T) {
	var gotPath string
	var gotDoc models.NotificationHistory
	client := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	idx := NewHistoryIndex(client, "notification-history")
	err := idx.Index(context.Background(), &models.NotificationHistory{ID: 12, Title: "Scholarship week"})
	require.NoError(t, err)

	assert.Equal(t, "/notification-history/_doc/12", gotPath)
	assert.Equal(t, "Scholarship week", gotDoc.Title)
}

func TestHistoryIndex_Search(t *testing.T) {
	var gotQuery string
	client := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		_, _ = w.Write([]byte(`{
			"hits": {
				"total": {"value": 3},
				"hits": [
					{"_source": {"id": 3, "title": "Deadline reminder", "targetAudience": "APPLICANTS"}}
				]
			}
		}`))
	})

	page, err := NewHistoryIndex(client, "notification-history").Search(context.Background(), "deadline", 1, 1)
	require.NoError(t, err)

	assert.True(t, strings.Contains(gotQuery, `"multi_match"`))
	assert.True(t, strings.Contains(gotQuery, `"from":1`))
	assert.Equal(t, int64(3), page.TotalElements)
	require.Len(t, page.Content, 1)
	assert.Equal(t, models.AudienceApplicants, page.Content[0].TargetAudience)
}

func TestHistoryIndex_SearchError(t *testing.T) {
	client := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"parse"}`))
	})

	_, err := NewHistoryIndex(client, "notification-history").Search(context.Background(), "", 0, 10)
	assert.Error(t, err)
}
