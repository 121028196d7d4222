package bleve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/solrdex/internal/document"
)

func post(id string) document.Payload {
	return document.Payload{
		"id":         "Post " + id,
		"type":       []string{"Post", "BaseClass"},
		"title_text": "A Title about Bayes",
		"blog_id_i":  "4",
	}
}

func comment(id string) document.Payload {
	return document.Payload{"id": "Comment " + id, "type": []string{"Comment", "BaseClass"}}
}

func mustCount(t *testing.T, c *Connection, q string) uint64 {
	t.Helper()
	n, err := c.Count(q)
	require.NoError(t, err, q)
	return n
}

func docCount(t *testing.T, c *Connection) uint64 {
	t.Helper()
	n, err := c.DocCount()
	require.NoError(t, err)
	return n
}

func has(t *testing.T, c *Connection, id string) bool {
	t.Helper()
	ok, err := c.Has(id)
	require.NoError(t, err)
	return ok
}

func openMem(t *testing.T) *Connection {
	t.Helper()
	c, err := Open("", []string{"title_text"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAddVisibleAfterCommit(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)

	require.NoError(t, c.Add(ctx, []document.Payload{post("1"), comment("2")}))
	require.Zero(t, docCount(t, c), "nothing is visible before commit")
	require.Equal(t, 2, c.Pending())
	require.NoError(t, c.Commit(ctx))

	assert.Equal(t, uint64(2), docCount(t, c))
	assert.True(t, has(t, c, "Post 1"))
	assert.Equal(t, uint64(2), mustCount(t, c, "type:BaseClass"))
	assert.Equal(t, uint64(1), mustCount(t, c, "title_text:bayes"), "text field should be analyzed")
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)
	_ = c.Add(ctx, []document.Payload{post("1"), post("2")})
	require.NoError(t, c.Commit(ctx))

	require.NoError(t, c.DeleteByID(ctx, []string{"Post 1"}))
	require.True(t, has(t, c, "Post 1"), "delete must not apply before commit")
	require.NoError(t, c.Commit(ctx))
	assert.False(t, has(t, c, "Post 1"))
	assert.True(t, has(t, c, "Post 2"))
}

func TestDeleteByQuery(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)
	_ = c.Add(ctx, []document.Payload{post("1"), post("2"), comment("3")})
	require.NoError(t, c.Commit(ctx))

	require.NoError(t, c.DeleteByQuery(ctx, "type:Post"))
	require.NoError(t, c.Commit(ctx))
	require.Equal(t, uint64(1), docCount(t, c))

	// Staged adds before a delete-all are removed by it; adds after it survive.
	_ = c.Add(ctx, []document.Payload{post("4")})
	_ = c.DeleteByQuery(ctx, "type:[* TO *]")
	_ = c.Add(ctx, []document.Payload{post("5")})
	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, uint64(1), docCount(t, c))
	assert.True(t, has(t, c, "Post 5"))
}

func TestCommitFailureKeepsUnappliedCommands(t *testing.T) {
	ctx := context.Background()
	c := openMem(t)
	_ = c.Add(ctx, []document.Payload{post("1")})
	_ = c.DeleteByQuery(ctx, "type:Comment")
	// An empty id makes the batch after the query flush fail.
	c.pending = append(c.pending, op{kind: opAdd, doc: post("2")})

	require.Error(t, c.Commit(ctx))
	assert.True(t, has(t, c, "Post 1"), "the add flushed before the query should be applied")
	require.Equal(t, 2, c.Pending(), "the query and the failed add stay staged")
	assert.Equal(t, opDeleteQuery, c.pending[0].kind)

	c.pending = c.pending[:1]
	require.NoError(t, c.Commit(ctx))
	assert.Zero(t, c.Pending())
	assert.Equal(t, uint64(1), docCount(t, c))
}

func TestParseQuery(t *testing.T) {
	_, err := ParseQuery("  ")
	assert.Error(t, err)
	for _, q := range []string{"type:[* TO *]", "type:Post", "blog_id_i:4"} {
		_, err := ParseQuery(q)
		assert.NoError(t, err, q)
	}
}

func TestAddRequiresID(t *testing.T) {
	c := openMem(t)
	assert.Error(t, c.Add(context.Background(), []document.Payload{{"title_text": "x"}}))
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.bleve")

	c, err := Open(path, []string{"title_text"})
	require.NoError(t, err)
	_ = c.Add(ctx, []document.Payload{post("1")})
	require.NoError(t, c.Commit(ctx))
	require.NoError(t, c.Close())

	c, err = Open(path, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	assert.True(t, has(t, c, "Post 1"), "document lost across reopen")
}
