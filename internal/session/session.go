// Package session turns index and remove requests into ordered backend commands.
//
// Every public call builds its own queue and dispatches it before returning. Assembly
// of all instances happens before anything is sent, so a failure on any instance
// leaves the backend untouched. Commits are always dispatched after the writes they
// follow.
package session

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/hyperjump/solrdex/internal/document"
)

// QueryAll matches every indexed document.
const QueryAll = "type:[* TO *]"

// QueryType matches the documents of one type, including subtypes.
func QueryType(typeName string) string { return "type:" + typeName }

// Session indexes and removes instances through a backend connection.
type Session struct {
	assembler *document.Assembler
	conn      Connection
	logger    *zap.Logger // optional; when set, logs debug events
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a logger for debug output (dispatch timings, batch sizes).
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New returns a session over assembler and conn.
func New(assembler *document.Assembler, conn Connection, opts ...Option) *Session {
	s := &Session{assembler: assembler, conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connection returns the backend connection.
func (s *Session) Connection() Connection { return s.conn }

// Index adds instances to the backend. An element that is a slice is expanded into
// its members.
func (s *Session) Index(ctx context.Context, instances ...any) error {
	return s.index(ctx, false, instances)
}

// IndexAndCommit is Index followed by a commit.
func (s *Session) IndexAndCommit(ctx context.Context, instances ...any) error {
	return s.index(ctx, true, instances)
}

// Remove deletes instances from the backend by id.
func (s *Session) Remove(ctx context.Context, instances ...any) error {
	return s.remove(ctx, false, instances)
}

// RemoveAndCommit is Remove followed by a commit.
func (s *Session) RemoveAndCommit(ctx context.Context, instances ...any) error {
	return s.remove(ctx, true, instances)
}

// RemoveAll deletes every document, or with a type name only that type's documents.
func (s *Session) RemoveAll(ctx context.Context, typeName string) error {
	return s.removeAll(ctx, false, typeName)
}

// RemoveAllAndCommit is RemoveAll followed by a commit.
func (s *Session) RemoveAllAndCommit(ctx context.Context, typeName string) error {
	return s.removeAll(ctx, true, typeName)
}

// Commit makes earlier writes visible.
func (s *Session) Commit(ctx context.Context) error {
	q := s.queue()
	q.Push(Commit())
	return q.Dispatch(ctx, s.conn)
}

// Preview assembles instances into payloads without sending anything.
func (s *Session) Preview(instances ...any) ([]document.Payload, error) {
	flat := flatten(instances)
	out := make([]document.Payload, 0, len(flat))
	for _, instance := range flat {
		doc, err := s.assembler.Assemble(instance)
		if err != nil {
			return nil, err
		}
		out = append(out, doc.Payload())
	}
	return out, nil
}

func (s *Session) index(ctx context.Context, commit bool, instances []any) error {
	payloads, err := s.Preview(instances...)
	if err != nil {
		return err
	}
	q := s.queue()
	for _, p := range payloads {
		q.Push(AddDocument(p))
	}
	if commit {
		q.Push(Commit())
	}
	return q.Dispatch(ctx, s.conn)
}

func (s *Session) remove(ctx context.Context, commit bool, instances []any) error {
	q := s.queue()
	for _, instance := range flatten(instances) {
		id, err := s.assembler.Identify(instance)
		if err != nil {
			return err
		}
		q.Push(DeleteByID(id.IndexID()))
	}
	if commit {
		q.Push(Commit())
	}
	return q.Dispatch(ctx, s.conn)
}

func (s *Session) removeAll(ctx context.Context, commit bool, typeName string) error {
	q := s.queue()
	if typeName == "" {
		q.Push(DeleteByQuery(QueryAll))
	} else {
		q.Push(DeleteByQuery(QueryType(typeName)))
	}
	if commit {
		q.Push(Commit())
	}
	return q.Dispatch(ctx, s.conn)
}

func (s *Session) queue() *Queue { return &Queue{logger: s.logger} }

// flatten expands top-level slices and arrays; byte slices are left alone.
func flatten(instances []any) []any {
	out := make([]any, 0, len(instances))
	for _, instance := range instances {
		rv := reflect.ValueOf(instance)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				out = append(out, rv.Index(i).Interface())
			}
			continue
		}
		out = append(out, instance)
	}
	return out
}
