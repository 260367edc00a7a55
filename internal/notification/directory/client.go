// Package directory reads users from the auth service's admin listing.
package directory

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	commonhttp "edumatch-notifications/internal/common/http"
	"edumatch-notifications/internal/models"
)

// Query selects one page of the listing. Empty Role and Keyword are omitted.
type Query struct {
	Page    int
	Size    int
	Role    string
	Keyword string
}

type Client struct {
	http    *commonhttp.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    commonhttp.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ListUsers fetches one page, forwarding the caller's bearer token.
func (c *Client) ListUsers(ctx context.Context, q Query, token string) (*models.DirectoryPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.Size))
	if q.Role != "" {
		params.Set("role", q.Role)
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}

	var page models.DirectoryPage
	if err := c.http.GetJSON(ctx, c.baseURL+"/api/admin/users?"+params.Encode(), token, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
