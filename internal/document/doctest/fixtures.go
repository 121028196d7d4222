// Package doctest provides a small blog domain with frozen registries for tests of
// the assembly and session layers.
package doctest

import (
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/solrdex/internal/adapter"
	"github.com/hyperjump/solrdex/internal/document"
	"github.com/hyperjump/solrdex/internal/schema"
)

type Post struct {
	ID             int
	Title          string
	Body           string
	BlogID         int
	RatingsAverage float64
	CategoryIDs    []int `solr:"category_ids"`
	PublishedAt    *time.Time
	Featured       *bool
	AuthorName     any
	CustomString   map[string]string
	CustomFl       map[string]any `solr:"custom_fl"`
	CustomTime     map[string]time.Time
	CustomBoolean  map[string]bool
}

type Comment struct {
	ID   int
	Body string
}

// User has a schema but no adapter.
type User struct {
	ID   int
	Name string
}

// Blog has an adapter but no schema.
type Blog struct{ ID int }

var nextID = 0

// NewPost returns a post with a fresh id.
func NewPost() *Post {
	nextID++
	return &Post{ID: nextID}
}

// NewComment returns a comment with a fresh id.
func NewComment() *Comment {
	nextID++
	return &Comment{ID: nextID}
}

// Setup builds the blog registries. extra, when given, adds declarations before freezing.
func Setup(extra func(*schema.Registry) error) (*schema.Registry, *adapter.Registry, error) {
	schemas := schema.NewRegistry()
	adapters := adapter.NewRegistry()

	for _, decl := range [][2]string{{"Post", "BaseClass"}, {"Comment", "BaseClass"}, {"Blog", ""}} {
		if err := adapters.DeclareType(decl[0], decl[1]); err != nil {
			return nil, nil, err
		}
	}
	if err := adapters.Register("BaseClass", adapter.ByAttribute("id")); err != nil {
		return nil, nil, err
	}
	if err := adapters.Register("Blog", adapter.ByAttribute("id")); err != nil {
		return nil, nil, err
	}

	err := schemas.Setup("Post", func(b *schema.Builder) {
		b.Text("title")
		b.Text("body")
		b.Text("backwards_title", schema.Compute(func(p any) any { return reverse(p.(*Post).Title) }))
		b.String("title")
		b.Integer("blog_id")
		b.Integer("category_ids", schema.Multiple())
		b.Float("average_rating", schema.Attribute("ratings_average"))
		b.Time("published_at")
		b.Boolean("featured")
		b.String("sort_title", schema.Compute(func(p any) any { return sortTitle(p.(*Post).Title) }))
		b.Integer("primary_category_id", schema.Compute(func(p any) any {
			if ids := p.(*Post).CategoryIDs; len(ids) > 0 {
				return ids[0]
			}
			return nil
		}))
		b.DynamicString("custom_string")
		b.DynamicInteger("custom_integer", schema.Keys(
			func(p any) ([]string, error) {
				ids := p.(*Post).CategoryIDs
				keys := make([]string, len(ids))
				for i, id := range ids {
					keys[i] = strconv.Itoa(id)
				}
				return keys, nil
			},
			func(any, string) (any, error) { return 1, nil },
		))
		b.DynamicFloat("custom_float", schema.Multiple(), schema.Attribute("custom_fl"))
		b.DynamicTime("custom_time")
		b.DynamicBoolean("custom_boolean")
	})
	if err != nil {
		return nil, nil, err
	}
	if err := schemas.Setup("Comment", func(b *schema.Builder) { b.Text("body") }); err != nil {
		return nil, nil, err
	}
	if err := schemas.Setup("User", func(b *schema.Builder) { b.String("name") }); err != nil {
		return nil, nil, err
	}
	if extra != nil {
		if err := extra(schemas); err != nil {
			return nil, nil, err
		}
	}
	schemas.Freeze()
	adapters.Freeze()
	return schemas, adapters, nil
}

// Assembler is Setup followed by document.NewAssembler. It panics on setup errors.
func Assembler(extra func(*schema.Registry) error) *document.Assembler {
	schemas, adapters, err := Setup(extra)
	if err != nil {
		panic(err)
	}
	return document.NewAssembler(schemas, adapters)
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func sortTitle(s string) string {
	s = strings.ToLower(s)
	for _, article := range []string{"the ", "a ", "an "} {
		s = strings.TrimPrefix(s, article)
	}
	return s
}
