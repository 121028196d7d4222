package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/solrdex/internal/document"
)

// Connection is the backend a session dispatches to. Implementations report any
// non-success acknowledgment as an error.
type Connection interface {
	Add(ctx context.Context, docs []document.Payload) error
	DeleteByID(ctx context.Context, ids []string) error
	DeleteByQuery(ctx context.Context, query string) error
	Commit(ctx context.Context) error
}

// Kind names a queued command.
type Kind int

const (
	KindAdd Kind = iota + 1
	KindDeleteByID
	KindDeleteByQuery
	KindCommit
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindDeleteByID:
		return "delete_by_id"
	case KindDeleteByQuery:
		return "delete_by_query"
	case KindCommit:
		return "commit"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command is one queued backend operation.
type Command struct {
	Kind     Kind
	Document document.Payload
	ID       string
	Query    string
}

func AddDocument(p document.Payload) Command { return Command{Kind: KindAdd, Document: p} }
func DeleteByID(id string) Command           { return Command{Kind: KindDeleteByID, ID: id} }
func DeleteByQuery(q string) Command         { return Command{Kind: KindDeleteByQuery, Query: q} }
func Commit() Command                        { return Command{Kind: KindCommit} }

// Queue is an ordered batch of commands built by one session call.
type Queue struct {
	commands []Command
	logger   *zap.Logger
}

// Push appends commands.
func (q *Queue) Push(cmds ...Command) { q.commands = append(q.commands, cmds...) }

// Len returns the number of queued commands.
func (q *Queue) Len() int { return len(q.commands) }

// Commands returns a copy of the queued commands.
func (q *Queue) Commands() []Command { return append([]Command(nil), q.commands...) }

// Dispatch sends the queue to conn in order. Runs of adds and runs of id deletes are
// each sent as one call; queries and commits go one per command. Dispatch stops at the
// first failing call and the queue is emptied either way.
func (q *Queue) Dispatch(ctx context.Context, conn Connection) error {
	cmds := q.commands
	q.commands = nil
	for i := 0; i < len(cmds); {
		j := i + 1
		if cmds[i].Kind == KindAdd || cmds[i].Kind == KindDeleteByID {
			for j < len(cmds) && cmds[j].Kind == cmds[i].Kind {
				j++
			}
		}
		if err := q.send(ctx, conn, cmds[i:j]); err != nil {
			return err
		}
		i = j
	}
	return nil
}

func (q *Queue) send(ctx context.Context, conn Connection, run []Command) error {
	start := time.Now()
	kind := run[0].Kind
	var err error
	switch kind {
	case KindAdd:
		docs := make([]document.Payload, len(run))
		for i, c := range run {
			docs[i] = c.Document
		}
		err = conn.Add(ctx, docs)
	case KindDeleteByID:
		ids := make([]string, len(run))
		for i, c := range run {
			ids[i] = c.ID
		}
		err = conn.DeleteByID(ctx, ids)
	case KindDeleteByQuery:
		err = conn.DeleteByQuery(ctx, run[0].Query)
	case KindCommit:
		err = conn.Commit(ctx)
	default:
		err = fmt.Errorf("unknown command %s", kind)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	if q.logger != nil {
		q.logger.Debug("dispatched", zap.Stringer("command", kind), zap.Int("count", len(run)), zap.Duration("took", time.Since(start)))
	}
	return nil
}
