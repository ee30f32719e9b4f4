package jsonapi

// ResourceBuilder assembles a Resource with chained calls. The zero value
// is not usable; start from NewResource.
type ResourceBuilder struct {
	r Resource
}

// NewResource starts a resource with an empty attribute set, so a
// resource without attributes still serializes "attributes": {}.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{r: Resource{Type: resourceType, ID: id, Attributes: map[string]any{}}}
}

// Attr sets one attribute. nil is kept and serialized as null.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.r.Attributes[key] = value
	return b
}

// AttrIf sets the attribute only when ok is true.
func (b *ResourceBuilder) AttrIf(ok bool, key string, value any) *ResourceBuilder {
	if ok {
		b.r.Attributes[key] = value
	}
	return b
}

// Attrs copies attrs. "id" and "type" are reserved top-level members and
// are skipped.
func (b *ResourceBuilder) Attrs(attrs map[string]any) *ResourceBuilder {
	for k, v := range attrs {
		if k != "id" && k != "type" {
			b.r.Attributes[k] = v
		}
	}
	return b
}

func (b *ResourceBuilder) Meta(key string, value any) *ResourceBuilder {
	if b.r.Meta == nil {
		b.r.Meta = Meta{}
	}
	b.r.Meta[key] = value
	return b
}

// Link sets links.self.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.r.Links = &ResourceLinks{Self: self}
	return b
}

func (b *ResourceBuilder) Build() Resource { return b.r }
