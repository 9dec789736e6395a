package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// tagDocument is the Bleve document shape for one record's tag set: a
// keyword field so bleve indexes each tag as an exact, unanalyzed term.
// There is no scoring concern here; Bleve is used purely as a fast
// multi-tag postings lookup, consistent with "ANN + metadata filters
// only" — no relevance ranking is performed over tags.
type tagDocument struct {
	Tags []string `json:"tags"`
}

// TagIndex is a tag-membership index: it answers "which record ids carry
// this tag" without any text-relevance scoring. Its open/create,
// per-document put/delete, Close lifecycle is adapted from full-text BM25
// scoring down to plain keyword membership.
type TagIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// NewTagIndex opens (or creates) a tag index at path. path == "" creates
// an in-memory index, as newTierStore and the tests do.
func NewTagIndex(path string) (*TagIndex, error) {
	indexMapping, err := tagIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("store: build tag index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create tag index directory: %w", err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("store: open tag index: %w", err)
	}

	return &TagIndex{index: idx, path: path}, nil
}

func tagIndexMapping() (*mapping.IndexMappingImpl, error) {
	tagField := bleve.NewTextFieldMapping()
	tagField.Analyzer = "keyword"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("tags", tagField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

// Put indexes id under every tag it carries, replacing any prior entry.
func (t *TagIndex) Put(id string, tags []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("store: tag index closed")
	}
	return t.index.Index(id, tagDocument{Tags: tags})
}

// Delete removes id from the tag index.
func (t *TagIndex) Delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("store: tag index closed")
	}
	return t.index.Delete(id)
}

// Members returns every record id indexed under tag.
func (t *TagIndex) Members(tag string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, fmt.Errorf("store: tag index closed")
	}

	query := bleve.NewTermQuery(tag)
	query.SetField("tags")
	req := bleve.NewSearchRequest(query)

	count, err := t.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("store: tag index doc count: %w", err)
	}
	req.Size = int(count)
	if req.Size == 0 {
		return nil, nil
	}

	result, err := t.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("store: tag index search: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Close closes the underlying Bleve index. Idempotent.
func (t *TagIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.index.Close()
}
