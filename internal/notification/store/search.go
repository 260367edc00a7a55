package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/models"
)

// HistoryIndexMapping is the index body created at startup.
const HistoryIndexMapping = `{
	"mappings": {
		"properties": {
			"id":              {"type": "long"},
			"title":           {"type": "text"},
			"message":         {"type": "text"},
			"targetAudience":  {"type": "keyword"},
			"type":            {"type": "keyword"},
			"priority":        {"type": "keyword"},
			"totalRecipients": {"type": "integer"},
			"deliveredCount":  {"type": "integer"},
			"failedCount":     {"type": "integer"},
			"createdBy":       {"type": "long"},
			"createdAt":       {"type": "date"}
		}
	}
}`

// HistoryIndex mirrors broadcast history into Elasticsearch for free-text search.
type HistoryIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewHistoryIndex(client *elasticsearch.Client, index string) *HistoryIndex {
	return &HistoryIndex{client: client, index: index}
}

func (x *HistoryIndex) Index(ctx context.Context, h *models.NotificationHistory) error {
	body, err := json.Marshal(h)
	if err != nil {
		return err
	}

	res, err := x.client.Index(
		x.index,
		bytes.NewReader(body),
		x.client.Index.WithContext(ctx),
		x.client.Index.WithDocumentID(strconv.FormatInt(h.ID, 10)),
	)
	if err != nil {
		return errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchQueryFailedError("history_index", fmt.Errorf("%s", res.Status()))
	}
	return nil
}

type historySearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.NotificationHistory `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search matches q against title and message, newest first.
func (x *HistoryIndex) Search(ctx context.Context, q string, page, size int) (models.Page[models.NotificationHistory], error) {
	query := map[string]interface{}{
		"from": page * size,
		"size": size,
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
		},
	}
	if q == "" {
		query["query"] = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		query["query"] = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"title^2", "message"},
			},
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return models.Page[models.NotificationHistory]{}, errors.NewSearchQueryFailedError("history_search", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(&buf),
	)
	if err != nil {
		return models.Page[models.NotificationHistory]{}, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return models.Page[models.NotificationHistory]{}, errors.NewSearchQueryFailedError("history_search", fmt.Errorf("%s", res.Status()))
	}

	var parsed historySearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return models.Page[models.NotificationHistory]{}, errors.NewSearchQueryFailedError("history_search", err)
	}

	items := make([]models.NotificationHistory, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}
	return models.NewPage(items, page, size, parsed.Hits.Total.Value), nil
}
