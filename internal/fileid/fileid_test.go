package fileid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForPath(t *testing.T) {
	id := ForPath("/spool/posts.json")
	assert.Equal(t, id, ForPath("/spool/posts.json"), "same path should give same ID")
	assert.Len(t, id, hashLen)
	assert.NotContains(t, id, "/")
	assert.NotContains(t, id, " ")
}

func TestForPath_differentPaths(t *testing.T) {
	assert.NotEqual(t, ForPath("/spool/a.json"), ForPath("/spool/b.json"))
}

func TestForPath_normalized(t *testing.T) {
	id := ForPath("/spool/posts.json")
	assert.Equal(t, id, ForPath("/spool/./posts.json"))
	assert.Equal(t, id, ForPath("/spool/sub/../posts.json"))
}

func TestForRecord(t *testing.T) {
	gen := Generator("/spool/posts.json")
	assert.Equal(t, ForRecord("/spool/posts.json", 2), gen(2))
	assert.NotEqual(t, ForRecord("/spool/posts.json", 0), ForRecord("/spool/posts.json", 1))
	assert.Regexp(t, `-3$`, ForRecord("/spool/posts.json", 3))
}
