package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonhttp "edumatch-notifications/internal/common/http"
)

func TestClient_ListUsers(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"users":[{"id":1,"email":"a@x.io"},{"id":"2","email":"b@x.io"}],"totalPages":3}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	page, err := c.ListUsers(context.Background(), Query{Page: 1, Size: 100, Role: "ROLE_USER"}, "abc")
	require.NoError(t, err)

	assert.Equal(t, "/api/admin/users", got.URL.Path)
	assert.Equal(t, "1", got.URL.Query().Get("page"))
	assert.Equal(t, "100", got.URL.Query().Get("size"))
	assert.Equal(t, "ROLE_USER", got.URL.Query().Get("role"))
	assert.False(t, got.URL.Query().Has("keyword"))
	assert.Equal(t, "Bearer abc", got.Header.Get("Authorization"))

	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Users, 2)
	assert.Equal(t, int64(2), page.Users[1].ID.Value)
}

func TestClient_ListUsersStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).ListUsers(context.Background(), Query{Size: 1, Keyword: "a@x.io"}, "")

	var statusErr *commonhttp.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}
