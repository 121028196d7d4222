package document_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/solrdex/internal/document"
	"github.com/hyperjump/solrdex/internal/document/doctest"
	"github.com/hyperjump/solrdex/internal/field"
	"github.com/hyperjump/solrdex/internal/indexerr"
	"github.com/hyperjump/solrdex/internal/schema"
)

func assemble(t *testing.T, instance any) *document.Document {
	t.Helper()
	doc, err := doctest.Assembler(nil).Assemble(instance)
	require.NoError(t, err)
	return doc
}

func value(t *testing.T, doc *document.Document, name string) field.Value {
	t.Helper()
	f, ok := doc.FieldByName(name)
	require.True(t, ok, "missing field %s", name)
	return f.Value
}

func TestAssemble_Identity(t *testing.T) {
	post := doctest.NewPost()
	doc := assemble(t, post)

	p := doc.Payload()
	assert.Equal(t, "Post "+strconv.Itoa(post.ID), p[document.IDField])
	assert.Equal(t, []string{"Post", "BaseClass"}, p[document.TypeField])
	assert.Equal(t, "Post "+strconv.Itoa(post.ID), p.ID())
	assert.Equal(t, []string{"Post", "BaseClass"}, p.Types())

	comment := assemble(t, doctest.NewComment())
	assert.Equal(t, []string{"Comment", "BaseClass"}, comment.TypeNames())
}

func TestAssemble_Fields(t *testing.T) {
	published := time.Date(1983, 7, 8, 5, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	featured := true
	post := doctest.NewPost()
	post.Title = "The Blog Post"
	post.Body = "A Post"
	post.BlogID = 4
	post.RatingsAverage = 2.23
	post.CategoryIDs = []int{3, 14}
	post.PublishedAt = &published
	post.Featured = &featured

	doc := assemble(t, post)
	assert.Equal(t, field.Scalar("The Blog Post"), value(t, doc, "title_text"))
	assert.Equal(t, field.Scalar("A Post"), value(t, doc, "body_text"))
	assert.Equal(t, field.Scalar("tsoP golB ehT"), value(t, doc, "backwards_title_text"))
	assert.Equal(t, field.Scalar("The Blog Post"), value(t, doc, "title_s"))
	assert.Equal(t, field.Scalar("4"), value(t, doc, "blog_id_i"))
	assert.Equal(t, field.Scalar("2.23"), value(t, doc, "average_rating_f"))
	assert.Equal(t, field.Multi([]string{"3", "14"}), value(t, doc, "category_ids_im"))
	assert.Equal(t, field.Scalar("1983-07-08T09:00:00Z"), value(t, doc, "published_at_d"))
	assert.Equal(t, field.Scalar("true"), value(t, doc, "featured_b"))
	assert.Equal(t, field.Scalar("blog post"), value(t, doc, "sort_title_s"))
	assert.Equal(t, field.Scalar("3"), value(t, doc, "primary_category_id_i"))
}

func TestAssemble_Booleans(t *testing.T) {
	post := doctest.NewPost()
	_, ok := assemble(t, post).FieldByName("featured_b")
	assert.False(t, ok, "nil boolean is omitted")
	_, ok = assemble(t, post).Payload()["featured_b"]
	assert.False(t, ok)

	featured := false
	post.Featured = &featured
	assert.Equal(t, field.Scalar("false"), value(t, assemble(t, post), "featured_b"))
}

func TestAssemble_DynamicFields(t *testing.T) {
	post := doctest.NewPost()
	post.CustomString = map[string]string{"test": "string"}
	post.CategoryIDs = []int{1, 2}
	post.CustomFl = map[string]any{"test": 1.5}
	post.CustomTime = map[string]time.Time{"test": time.Date(2009, 5, 18, 18, 5, 0, 0, time.FixedZone("EDT", -4*3600))}
	post.CustomBoolean = map[string]bool{"test": false}

	doc := assemble(t, post)
	assert.Equal(t, field.Scalar("string"), value(t, doc, "custom_string:test_s"))
	assert.Equal(t, field.Scalar("1"), value(t, doc, "custom_integer:1_i"))
	assert.Equal(t, field.Scalar("1"), value(t, doc, "custom_integer:2_i"))
	assert.Equal(t, field.Multi([]string{"1.5"}), value(t, doc, "custom_float:test_fm"))
	assert.Equal(t, field.Scalar("2009-05-18T22:05:00Z"), value(t, doc, "custom_time:test_d"))
	assert.Equal(t, field.Scalar("false"), value(t, doc, "custom_boolean:test_b"))

	post.CustomFl = map[string]any{"test": []float64{1.0, 2.1, 3.2}}
	assert.Equal(t, field.Multi([]string{"1.0", "2.1", "3.2"}), value(t, assemble(t, post), "custom_float:test_fm"))
}

func TestAssemble_SuperclassField(t *testing.T) {
	a := doctest.Assembler(func(r *schema.Registry) error {
		return r.Setup("BaseClass", func(b *schema.Builder) { b.String("author_name") })
	})
	post := doctest.NewPost()
	post.AuthorName = "Mat Brown"

	doc, err := a.Assemble(post)
	require.NoError(t, err)
	assert.Equal(t, field.Scalar("Mat Brown"), value(t, doc, "author_name_s"))
}

func TestAssemble_Errors(t *testing.T) {
	a := doctest.Assembler(func(r *schema.Registry) error {
		return r.Setup("Post", func(b *schema.Builder) { b.String("author_name") })
	})

	_, err := a.Assemble(time.Now())
	assert.ErrorIs(t, err, indexerr.ErrNoSchema)

	_, err = a.Assemble(&doctest.Blog{ID: 1})
	assert.ErrorIs(t, err, indexerr.ErrNoSchema)

	_, err = a.Assemble(&doctest.User{ID: 1})
	assert.ErrorIs(t, err, indexerr.ErrNoAdapter)

	post := doctest.NewPost()
	post.AuthorName = []string{"Mat Brown", "Matthew Brown"}
	doc, err := a.Assemble(post)
	assert.ErrorIs(t, err, indexerr.ErrCardinalityMismatch)
	assert.Nil(t, doc)
}

func TestIdentify(t *testing.T) {
	a := doctest.Assembler(nil)
	post := doctest.NewPost()
	id, err := a.Identify(post)
	require.NoError(t, err)
	assert.Equal(t, "Post "+strconv.Itoa(post.ID), id.IndexID())

	_, err = a.Identify(&doctest.User{ID: 2})
	assert.ErrorIs(t, err, indexerr.ErrNoAdapter)
}

func TestPayload_Types(t *testing.T) {
	p := document.Payload{document.TypeField: []any{"Post", "BaseClass", 3}}
	assert.Equal(t, []string{"Post", "BaseClass"}, p.Types())
	assert.Equal(t, []string{"Post"}, document.Payload{document.TypeField: "Post"}.Types())
	assert.Nil(t, document.Payload{}.Types())
	assert.Empty(t, document.Payload{}.ID())
}
