package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/google/uuid"

	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/repo"
	"github.com/shabdpress/blog_cms/pkg/logging"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "keyword"},
      "slug":         {"type": "keyword"},
      "status":       {"type": "keyword"},
      "createdBy":    {"type": "keyword"},
      "categoryId":   {"type": "keyword"},
      "title":        {"type": "text"},
      "titleHindi":   {"type": "text"},
      "excerpt":      {"type": "text"},
      "excerptHindi": {"type": "text"},
      "content":      {"type": "text"},
      "contentHindi": {"type": "text"},
      "createdAt":    {"type": "date"}
    }
  }
}`

type ClientConfig struct {
	URL      string
	Username string
	Password string
}

func NewClient(ctx context.Context, cfg ClientConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res)
	}
	return client, nil
}

// Elastic indexes blogs in Elasticsearch and hydrates hits from the database,
// so a stale index never leaks rows the filter would hide.
type Elastic struct {
	ES       *elasticsearch.Client
	Index    string
	Repo     *repo.GormRepo
	Fallback Database
}

func NewElastic(es *elasticsearch.Client, index string, r *repo.GormRepo) *Elastic {
	return &Elastic{ES: es, Index: index, Repo: r, Fallback: Database{Repo: r}}
}

func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.ES.Indices.Exists([]string{e.Index}, e.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = e.ES.Indices.Create(e.Index,
		e.ES.Indices.Create.WithContext(ctx),
		e.ES.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

type document struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Status       string `json:"status"`
	CreatedBy    string `json:"createdBy"`
	CategoryID   string `json:"categoryId,omitempty"`
	Title        string `json:"title"`
	TitleHindi   string `json:"titleHindi"`
	Excerpt      string `json:"excerpt"`
	ExcerptHindi string `json:"excerptHindi"`
	Content      string `json:"content"`
	ContentHindi string `json:"contentHindi"`
	CreatedAt    string `json:"createdAt"`
}

func toDocument(b *models.Blog) document {
	d := document{
		ID:           b.ID.String(),
		Slug:         b.Slug,
		Status:       string(b.Status),
		CreatedBy:    b.CreatedBy.String(),
		Title:        b.Title,
		TitleHindi:   b.TitleHindi,
		Excerpt:      b.Excerpt,
		ExcerptHindi: b.ExcerptHindi,
		Content:      b.Content,
		ContentHindi: b.ContentHindi,
		CreatedAt:    b.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if b.CategoryID != nil {
		d.CategoryID = b.CategoryID.String()
	}
	return d
}

func (e *Elastic) IndexBlog(ctx context.Context, b *models.Blog) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(toDocument(b)); err != nil {
		return fmt.Errorf("elasticsearch: encode blog: %w", err)
	}
	res, err := e.ES.Index(e.Index, &buf,
		e.ES.Index.WithContext(ctx),
		e.ES.Index.WithDocumentID(b.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index blog: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index blog", res)
	}
	return nil
}

func (e *Elastic) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	res, err := e.ES.Delete(e.Index, id.String(), e.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: delete blog: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return responseError("delete blog", res)
	}
	return nil
}

func buildQuery(q string, f repo.BlogFilter, offset, limit int) map[string]any {
	filters := []any{}
	if f.Status != nil {
		filters = append(filters, map[string]any{"term": map[string]any{"status": string(*f.Status)}})
	}
	if f.OwnerID != nil {
		filters = append(filters, map[string]any{"term": map[string]any{"createdBy": f.OwnerID.String()}})
	}
	if f.CategoryID != nil {
		filters = append(filters, map[string]any{"term": map[string]any{"categoryId": f.CategoryID.String()}})
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"title^2", "titleHindi^2", "excerpt", "excerptHindi", "content", "contentHindi"},
						"fuzziness": "AUTO",
					},
				},
				"filter": filters,
			},
		},
		"_source": false,
		"from":    offset,
		"size":    limit,
	}
}

// SearchBlogs queries Elasticsearch and falls back to the database when the
// cluster is unreachable or errors.
func (e *Elastic) SearchBlogs(ctx context.Context, q string, f repo.BlogFilter, offset, limit int) (int64, []models.Blog, error) {
	total, ids, err := e.searchIDs(ctx, q, f, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Warn("search_fallback", "reason", "elasticsearch unavailable", "error", err)
		return e.Fallback.SearchBlogs(ctx, q, f, offset, limit)
	}
	items, err := e.Repo.BlogsByIDs(ctx, ids, f)
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (e *Elastic) searchIDs(ctx context.Context, q string, f repo.BlogFilter, offset, limit int) (int64, []uuid.UUID, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildQuery(q, f, offset, limit)); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: encode query: %w", err)
	}

	res, err := e.ES.Search(
		e.ES.Search.WithContext(ctx),
		e.ES.Search.WithIndex(e.Index),
		e.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: decode response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return r.Hits.Total.Value, ids, nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch: %s: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}
