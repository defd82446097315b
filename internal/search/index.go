// internal/search/index.go
// Package search keeps a talent summary index in Elasticsearch and serves
// the employer-facing search queries over it. Indexing is best-effort: the
// scoring engine remains the source of truth and a failed index write is
// only logged.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"talent-platform/internal/common/database"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/scoring"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultIndex = "talents"

type Index struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewIndex(es *database.ElasticsearchClient, index string, log logger.Logger) *Index {
	if index == "" {
		index = defaultIndex
	}
	return &Index{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

type talentDoc struct {
	TalentID     string    `json:"talent_id"`
	TalentCode   string    `json:"talent_code"`
	OverallScore int       `json:"overall_score"`
	Status       string    `json:"qualification_status"`
	CriteriaMet  []string  `json:"criteria_met"`
	IndexedAt    time.Time `json:"indexed_at"`
}

// IndexTalent upserts the talent's summary document. It satisfies the
// scoring engine's indexer contract.
func (i *Index) IndexTalent(ctx context.Context, summary *scoring.Summary) error {
	doc := talentDoc{
		TalentID:     summary.TalentID,
		TalentCode:   summary.TalentCode,
		OverallScore: summary.OverallScore,
		Status:       string(summary.Status),
		CriteriaMet:  summary.CriteriaMet,
		IndexedAt:    time.Now().UTC(),
	}
	if doc.CriteriaMet == nil {
		doc.CriteriaMet = []string{}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal talent doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: summary.TalentID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, i.es.Client)
	if err != nil {
		return fmt.Errorf("index talent: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index talent: %s", res.Status())
	}
	return nil
}

// Query is an employer search over indexed talent summaries.
type Query struct {
	MinScore int      `json:"minScore" form:"minScore"`
	Criteria []string `json:"criteria" form:"criteria"`
	Status   string   `json:"status" form:"status"`
	Size     int      `json:"size" form:"size"`
}

// Hit is one search result. It carries no contact details; those stay
// gated behind the letter forward flow.
type Hit struct {
	TalentID     string   `json:"talentId"`
	TalentCode   string   `json:"talentCode"`
	OverallScore int      `json:"overallScore"`
	Status       string   `json:"qualificationStatus"`
	CriteriaMet  []string `json:"criteriaMet"`
}

// Search runs the employer query: minimum overall score, required criteria
// (all must be met) and optional status filter, ordered by score descending.
func (i *Index) Search(ctx context.Context, query Query) ([]Hit, error) {
	size := query.Size
	if size <= 0 || size > 100 {
		size = 20
	}

	var filters []map[string]interface{}
	if query.MinScore > 0 {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				"overall_score": map[string]interface{}{"gte": query.MinScore},
			},
		})
	}
	if query.Status != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"qualification_status": query.Status},
		})
	}
	for _, criterion := range query.Criteria {
		criterion = strings.TrimSpace(criterion)
		if criterion == "" {
			continue
		}
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"criteria_met": criterion},
		})
	}

	esQuery := map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{
			{"overall_score": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
	}

	body, err := json.Marshal(esQuery)
	if err != nil {
		return nil, errors.NewStorageError("marshal search query", err)
	}

	res, err := i.es.Client.Search(
		i.es.Client.Search.WithContext(ctx),
		i.es.Client.Search.WithIndex(i.index),
		i.es.Client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewUpstreamFailureError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewUpstreamFailureError("elasticsearch", fmt.Errorf("search failed: %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source talentDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewUpstreamFailureError("elasticsearch", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			TalentID:     h.Source.TalentID,
			TalentCode:   h.Source.TalentCode,
			OverallScore: h.Source.OverallScore,
			Status:       h.Source.Status,
			CriteriaMet:  h.Source.CriteriaMet,
		})
	}
	return hits, nil
}
