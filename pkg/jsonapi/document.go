package jsonapi

import (
	"net/url"
	"strconv"
)

// DocumentBuilder provides a fluent API for building Document objects.
type DocumentBuilder struct {
	doc Document
}

// NewDocument creates a new DocumentBuilder.
func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{doc: Document{JSONAPI: &JSONAPI{Version: Version}}}
}

// DataResource sets a single resource as the primary data.
func (b *DocumentBuilder) DataResource(r Resource) *DocumentBuilder {
	b.doc.Data = r
	return b
}

// DataCollection sets a collection as the primary data. A nil slice is
// written as an empty array.
func (b *DocumentBuilder) DataCollection(resources []Resource) *DocumentBuilder {
	if resources == nil {
		resources = []Resource{}
	}
	b.doc.Data = resources
	return b
}

// Errors sets the errors array and clears any data.
func (b *DocumentBuilder) Errors(errs ...Error) *DocumentBuilder {
	b.doc.Errors = errs
	b.doc.Data = nil
	return b
}

// Meta adds a metadata entry.
func (b *DocumentBuilder) Meta(key string, value any) *DocumentBuilder {
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	b.doc.Meta[key] = value
	return b
}

// Page adds offset pagination metadata and links.
func (b *DocumentBuilder) Page(p *Page) *DocumentBuilder {
	if p == nil {
		return b
	}
	b.Meta("total", p.Total)
	b.Meta("limit", p.Limit)
	b.Meta("offset", p.Offset)
	b.doc.Links = p.Links()
	return b
}

// Build returns the constructed Document.
func (b *DocumentBuilder) Build() Document {
	return b.doc
}

// Page describes one offset-addressed slice of a collection.
type Page struct {
	Total   int
	Limit   int
	Offset  int
	BaseURL string
}

// Links returns self, prev and next links for the page. Links are omitted
// when BaseURL is empty.
func (p *Page) Links() *Links {
	if p.BaseURL == "" {
		return nil
	}
	links := &Links{Self: p.url(p.Offset)}
	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		links.Prev = p.url(prev)
	}
	if p.Offset+p.Limit < p.Total {
		links.Next = p.url(p.Offset + p.Limit)
	}
	return links
}

func (p *Page) url(offset int) string {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return p.BaseURL
	}
	q := u.Query()
	q.Set("page[limit]", strconv.Itoa(p.Limit))
	q.Set("page[offset]", strconv.Itoa(offset))
	u.RawQuery = q.Encode()
	return u.String()
}

// ParsePage reads page[limit] and page[offset] from query. Missing or
// malformed values fall back to defaultLimit and zero; the limit is capped
// at maxLimit.
func ParsePage(query url.Values, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := query.Get("page[limit]"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := query.Get("page[offset]"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit, offset
}
