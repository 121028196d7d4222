// Package bleve is an embedded connection that keeps documents in a Bleve index.
//
// Writes are staged in order and applied only on Commit, so the index shows the same
// visibility rules a Solr core does: nothing added or deleted is searchable until it
// is committed.
package bleve

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/solrdex/internal/document"
)

const pageSize = 1000

type opKind int

const (
	opAdd opKind = iota
	opDelete
	opDeleteQuery
)

type op struct {
	kind  opKind
	id    string
	doc   document.Payload
	query blevequery.Query
}

// Connection stages update commands and applies them to a Bleve index on commit.
type Connection struct {
	mu      sync.Mutex
	index   bleve.Index
	pending []op
	logger  *zap.Logger // optional; when set, logs debug events
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets a logger for debug output (commit sizes).
func WithLogger(l *zap.Logger) Option {
	return func(c *Connection) { c.logger = l }
}

// NewMapping builds the index mapping: every field is a single keyword term except the
// named text fields, which use the standard analyzer.
func NewMapping(textFields []string) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	for _, name := range textFields {
		docMapping.AddFieldMappingsAt(name, textFieldMapping)
	}
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt(document.IDField, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(document.TypeField, keywordFieldMapping)
	im.DefaultMapping = docMapping
	return im
}

// Open creates or opens a Bleve index at path; an empty path keeps the index in memory.
// An existing index keeps the mapping it was created with. Remove the directory after
// changing text fields to rebuild it.
func Open(path string, textFields []string, opts ...Option) (*Connection, error) {
	im := NewMapping(textFields)
	var (
		index bleve.Index
		err   error
	)
	switch {
	case path == "":
		index, err = bleve.NewMemOnly(im)
	default:
		if _, statErr := os.Stat(path); statErr == nil {
			index, err = bleve.Open(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open Bleve index: %w", err)
			}
		} else {
			index, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	c := &Connection{index: index}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Add stages docs. Each must carry a document id.
func (c *Connection) Add(_ context.Context, docs []document.Payload) error {
	staged := make([]op, 0, len(docs))
	for _, d := range docs {
		id := d.ID()
		if id == "" {
			return fmt.Errorf("document without %q field", document.IDField)
		}
		staged = append(staged, op{kind: opAdd, id: id, doc: d})
	}
	c.mu.Lock()
	c.pending = append(c.pending, staged...)
	c.mu.Unlock()
	return nil
}

// DeleteByID stages deletes.
func (c *Connection) DeleteByID(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.pending = append(c.pending, op{kind: opDelete, id: id})
	}
	return nil
}

// DeleteByQuery stages a delete of every document matching q when the commit runs.
func (c *Connection) DeleteByQuery(_ context.Context, q string) error {
	parsed, err := ParseQuery(q)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.pending = append(c.pending, op{kind: opDeleteQuery, query: parsed})
	c.mu.Unlock()
	return nil
}

// ParseQuery maps a delete query onto a Bleve query. "type:[* TO *]" matches all
// documents and "type:Name" matches one type; anything else is handed to Bleve's
// query string syntax.
func ParseQuery(q string) (blevequery.Query, error) {
	q = strings.TrimSpace(q)
	switch {
	case q == "":
		return nil, fmt.Errorf("empty delete query")
	case q == "type:[* TO *]" || q == "*:*":
		return bleve.NewMatchAllQuery(), nil
	case strings.HasPrefix(q, document.TypeField+":") && !strings.ContainsAny(q[len(document.TypeField)+1:], " []*"):
		tq := bleve.NewTermQuery(q[len(document.TypeField)+1:])
		tq.SetField(document.TypeField)
		return tq, nil
	}
	return bleve.NewQueryStringQuery(q), nil
}

// Commit applies staged commands in order. Adds and deletes accumulate into one batch;
// a delete query first flushes the batch so it sees every earlier write. When Commit
// fails, commands already written to the index are dropped from the stage and the rest
// stay pending.
func (c *Connection) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	batch := c.index.NewBatch()
	flushed := 0
	flush := func(upTo int) error {
		if batch.Size() > 0 {
			if err := c.index.Batch(batch); err != nil {
				return fmt.Errorf("bleve batch: %w", err)
			}
			batch.Reset()
		}
		flushed = upTo
		return nil
	}
	apply := func() error {
		for i, o := range c.pending {
			switch o.kind {
			case opAdd:
				if err := batch.Index(o.id, map[string]any(o.doc)); err != nil {
					return fmt.Errorf("index %s: %w", o.id, err)
				}
			case opDelete:
				batch.Delete(o.id)
			case opDeleteQuery:
				if err := flush(i); err != nil {
					return err
				}
				ids, err := c.matching(o.query)
				if err != nil {
					return err
				}
				for _, id := range ids {
					batch.Delete(id)
				}
			}
		}
		return flush(len(c.pending))
	}
	if err := apply(); err != nil {
		c.pending = c.pending[flushed:]
		return err
	}
	if c.logger != nil {
		c.logger.Debug("bleve commit", zap.Int("commands", len(c.pending)))
	}
	c.pending = nil
	return nil
}

// matching returns the ids of every committed document matching q.
func (c *Connection) matching(q blevequery.Query) ([]string, error) {
	var ids []string
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		res, err := c.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("bleve search failed: %w", err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < pageSize {
			return ids, nil
		}
	}
}

// Pending returns the number of staged commands.
func (c *Connection) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// DocCount returns the number of committed documents.
func (c *Connection) DocCount() (uint64, error) {
	return c.index.DocCount()
}

// Has reports whether a committed document has id.
func (c *Connection) Has(id string) (bool, error) {
	res, err := c.index.Search(bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id})))
	if err != nil {
		return false, fmt.Errorf("bleve search failed: %w", err)
	}
	return res.Total > 0, nil
}

// Count returns how many committed documents match a delete-style query.
func (c *Connection) Count(q string) (uint64, error) {
	parsed, err := ParseQuery(q)
	if err != nil {
		return 0, err
	}
	req := bleve.NewSearchRequestOptions(parsed, 0, 0, false)
	res, err := c.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("bleve search failed: %w", err)
	}
	return res.Total, nil
}

func (c *Connection) Close() error {
	return c.index.Close()
}
