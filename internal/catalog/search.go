package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/desertthunder/peai/internal/models"
)

const defaultSearchLimit = 20

// buildIndexMapping indexes lesson text with the CJK bigram analyzer so Chinese titles
// match on partial words, and keeps the bvid as an exact keyword.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = cjk.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = cjk.AnalyzerName
	titleField.Store = true
	docMapping.AddFieldMappingsAt("title", titleField)

	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = cjk.AnalyzerName
	docMapping.AddFieldMappingsAt("description", descField)

	partsField := bleve.NewTextFieldMapping()
	partsField.Analyzer = cjk.AnalyzerName
	docMapping.AddFieldMappingsAt("parts", partsField)

	bvidField := bleve.NewTextFieldMapping()
	bvidField.Analyzer = keyword.Name
	bvidField.Store = true
	docMapping.AddFieldMappingsAt("bvid", bvidField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func buildIndex(videos []models.Video) (bleve.Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}

	batch := index.NewBatch()
	for _, v := range videos {
		if err := batch.Index(v.ID, toDocument(v)); err != nil {
			return nil, fmt.Errorf("index %s: %w", v.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("commit search batch: %w", err)
	}
	return index, nil
}

func toDocument(v models.Video) map[string]any {
	titles := make([]string, 0, len(v.Parts))
	for _, p := range v.Parts {
		titles = append(titles, p.Title)
	}
	return map[string]any{
		"title":       v.Title,
		"description": v.Description,
		"parts":       strings.Join(titles, " "),
		"bvid":        v.Bvid,
	}
}

// Search returns valid videos matching q, best match first. An empty query returns every video.
func (c *Catalog) Search(ctx context.Context, q string, limit int) ([]models.Video, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return c.Videos(), nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(q), limit, 0, false)
	result, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	videos := make([]models.Video, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if e, ok := c.entries[hit.ID]; ok && e.err == nil {
			videos = append(videos, e.video)
		}
	}
	return videos, nil
}

func buildSearchQuery(q string) query.Query {
	title := bleve.NewMatchQuery(q)
	title.SetField("title")
	title.SetBoost(3)

	parts := bleve.NewMatchQuery(q)
	parts.SetField("parts")
	parts.SetBoost(2)

	desc := bleve.NewMatchQuery(q)
	desc.SetField("description")

	bvid := bleve.NewTermQuery(q)
	bvid.SetField("bvid")
	bvid.SetBoost(5)

	return bleve.NewDisjunctionQuery(title, parts, desc, bvid)
}
