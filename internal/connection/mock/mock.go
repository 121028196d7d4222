// Package mock provides in-memory connections: a recording one for tests and dry runs,
// and a null one for disabled indexing.
package mock

import (
	"context"
	"reflect"
	"sync"

	"github.com/hyperjump/solrdex/internal/document"
)

// Op names a connection call.
type Op string

const (
	OpAdd           Op = "add"
	OpDeleteByID    Op = "delete_by_id"
	OpDeleteByQuery Op = "delete_by_query"
	OpCommit        Op = "commit"
)

// Call is one recorded connection call.
type Call struct {
	Op    Op
	Docs  []document.Payload
	IDs   []string
	Query string
}

// Connection records every call it receives. It is safe for concurrent use.
type Connection struct {
	mu    sync.Mutex
	calls []Call
	fail  map[Op]error
}

// New returns an empty recording connection.
func New() *Connection {
	return &Connection{fail: make(map[Op]error)}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (c *Connection) FailOn(op Op, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, op)
		return
	}
	c.fail[op] = err
}

func (c *Connection) record(call Call) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.fail[call.Op]; ok {
		return err
	}
	c.calls = append(c.calls, call)
	return nil
}

func (c *Connection) Add(_ context.Context, docs []document.Payload) error {
	return c.record(Call{Op: OpAdd, Docs: docs})
}

func (c *Connection) DeleteByID(_ context.Context, ids []string) error {
	return c.record(Call{Op: OpDeleteByID, IDs: ids})
}

func (c *Connection) DeleteByQuery(_ context.Context, query string) error {
	return c.record(Call{Op: OpDeleteByQuery, Query: query})
}

func (c *Connection) Commit(_ context.Context) error {
	return c.record(Call{Op: OpCommit})
}

// Calls returns the recorded calls in order.
func (c *Connection) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Ops returns the recorded call names in order.
func (c *Connection) Ops() []Op {
	calls := c.Calls()
	ops := make([]Op, len(calls))
	for i, call := range calls {
		ops[i] = call.Op
	}
	return ops
}

// Adds returns the document batches of every add call.
func (c *Connection) Adds() [][]document.Payload {
	var out [][]document.Payload
	for _, call := range c.Calls() {
		if call.Op == OpAdd {
			out = append(out, call.Docs)
		}
	}
	return out
}

// LastAdd returns the batch of the latest add call.
func (c *Connection) LastAdd() []document.Payload {
	adds := c.Adds()
	if len(adds) == 0 {
		return nil
	}
	return adds[len(adds)-1]
}

// DeletedIDs returns every id passed to DeleteByID, in order.
func (c *Connection) DeletedIDs() []string {
	var out []string
	for _, call := range c.Calls() {
		if call.Op == OpDeleteByID {
			out = append(out, call.IDs...)
		}
	}
	return out
}

// Queries returns every delete query, in order.
func (c *Connection) Queries() []string {
	var out []string
	for _, call := range c.Calls() {
		if call.Op == OpDeleteByQuery {
			out = append(out, call.Query)
		}
	}
	return out
}

// HasAddWith reports whether some added document carries every given field and value.
func (c *Connection) HasAddWith(fields map[string]any) bool {
	for _, batch := range c.Adds() {
		for _, doc := range batch {
			if matches(doc, fields) {
				return true
			}
		}
	}
	return false
}

// HasAddWithField reports whether some added document carries the named field.
func (c *Connection) HasAddWithField(name string) bool {
	for _, batch := range c.Adds() {
		for _, doc := range batch {
			if _, ok := doc[name]; ok {
				return true
			}
		}
	}
	return false
}

// Reset forgets recorded calls and injected failures.
func (c *Connection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.fail = make(map[Op]error)
}

func matches(doc document.Payload, fields map[string]any) bool {
	for name, want := range fields {
		got, ok := doc[name]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Null accepts and discards every call.
type Null struct{}

func (Null) Add(context.Context, []document.Payload) error { return nil }
func (Null) DeleteByID(context.Context, []string) error    { return nil }
func (Null) DeleteByQuery(context.Context, string) error   { return nil }
func (Null) Commit(context.Context) error                  { return nil }
