package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/solrdex/internal/fileid"
	"github.com/hyperjump/solrdex/internal/record"
	"github.com/hyperjump/solrdex/internal/session"
)

// Spool indexes record files through a Session. Records without an id are named
// after their file and position. It remembers which records each file produced so
// that rewriting a file drops the records it no longer holds and deleting it removes
// them all.
type Spool struct {
	session      *session.Session
	commitIndex  bool
	commitRemove bool
	logger       *zap.Logger

	mu    sync.Mutex
	files map[string][]*record.Record
}

// NewSpool returns a Handler over s. commitIndex and commitRemove choose whether
// each file event ends with a commit.
func NewSpool(s *session.Session, commitIndex, commitRemove bool, logger *zap.Logger) *Spool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Spool{
		session:      s,
		commitIndex:  commitIndex,
		commitRemove: commitRemove,
		logger:       logger,
		files:        make(map[string][]*record.Record),
	}
}

// Index reads path and indexes its records.
func (s *Spool) Index(ctx context.Context, path string) error {
	records, err := record.ReadFile(path, record.WithMissingIDs(fileid.Generator(path)))
	if err != nil {
		return err
	}

	s.mu.Lock()
	stale := staleRecords(s.files[path], records)
	s.mu.Unlock()

	if len(stale) > 0 {
		if err := s.session.Remove(ctx, toInstances(stale)...); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	index := s.session.Index
	if s.commitIndex {
		index = s.session.IndexAndCommit
	}
	if err := index(ctx, toInstances(records)...); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	identities := make([]*record.Record, len(records))
	for i, r := range records {
		identities[i] = &record.Record{Type: r.Type, ID: r.ID}
	}
	s.mu.Lock()
	s.files[path] = identities
	s.mu.Unlock()
	s.logger.Info("spooled file", zap.String("path", path), zap.Int("records", len(records)), zap.Int("stale", len(stale)))
	return nil
}

// Remove removes the records last indexed from path. Unknown paths are ignored.
func (s *Spool) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	identities, ok := s.files[path]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	remove := s.session.Remove
	if s.commitRemove {
		remove = s.session.RemoveAndCommit
	}
	if err := remove(ctx, toInstances(identities)...); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.mu.Lock()
	delete(s.files, path)
	s.mu.Unlock()
	s.logger.Info("unspooled file", zap.String("path", path), zap.Int("records", len(identities)))
	return nil
}

// Tracked returns the record identities last indexed from path, sorted.
func (s *Spool) Tracked(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files[path]))
	for _, r := range s.files[path] {
		out = append(out, r.String())
	}
	sort.Strings(out)
	return out
}

func staleRecords(prev, next []*record.Record) []*record.Record {
	keep := make(map[string]struct{}, len(next))
	for _, r := range next {
		keep[r.String()] = struct{}{}
	}
	var stale []*record.Record
	for _, r := range prev {
		if _, ok := keep[r.String()]; !ok {
			stale = append(stale, r)
		}
	}
	return stale
}

func toInstances(records []*record.Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
