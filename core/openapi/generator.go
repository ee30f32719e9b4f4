// Package openapi generates an OpenAPI 3.0 document for the post API from
// the field registry, so registered fields show up as typed attributes.
package openapi

import (
	"encoding/json"
	"fmt"

	"github.com/artpar/postmeta/core/registry"
	"github.com/artpar/postmeta/domain/field"
	"github.com/artpar/postmeta/domain/post"
)

// Spec is an OpenAPI 3.0 document.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get   *Operation `json:"get,omitempty"`
	Post  *Operation `json:"post,omitempty"`
	Put   *Operation `json:"put,omitempty"`
	Patch *Operation `json:"patch,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string              `json:"tags,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	OperationID string                `json:"operationId,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty"`
	Responses   map[string]Response   `json:"responses"`
	Security    []SecurityRequirement `json:"security,omitempty"`
}

// Parameter represents an API parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Required bool                 `json:"required,omitempty"`
	Content  map[string]MediaType `json:"content"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema represents a JSON Schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	MaxLength   *int               `json:"maxLength,omitempty"`
	Nullable    bool               `json:"nullable,omitempty"`
	ReadOnly    bool               `json:"readOnly,omitempty"`
}

// Components contains reusable schemas.
type Components struct {
	Schemas         map[string]*Schema        `json:"schemas,omitempty"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

// SecurityScheme defines an authentication method.
type SecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
	Name         string `json:"name,omitempty"`
	In           string `json:"in,omitempty"`
}

// SecurityRequirement specifies required security schemes.
type SecurityRequirement map[string][]string

// Tag provides metadata for a group of operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

const jsonAPI = "application/vnd.api+json"

// Generator builds the document for one registry.
type Generator struct {
	registry *registry.Registry
	basePath string
	info     Info
}

// NewGenerator creates a generator for routes mounted under basePath.
func NewGenerator(reg *registry.Registry, basePath string) *Generator {
	return &Generator{
		registry: reg,
		basePath: basePath,
		info: Info{
			Title:       "postmeta API",
			Version:     "dev",
			Description: "Posts and their registered metadata fields",
		},
	}
}

// SetInfo sets the API info.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// Generate builds the document from the current registrations.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]*Schema{
				"Error": errorSchema(),
			},
			SecuritySchemes: map[string]SecurityScheme{
				"bearerAuth": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
				"apiKey":     {Type: "apiKey", In: "header", Name: "X-API-Key"},
			},
		},
		Tags: []Tag{
			{Name: "posts", Description: "Posts with registered fields"},
			{Name: "fields", Description: "Field registry"},
		},
	}

	defs := g.registry.Fields(post.ResourceType)
	spec.Components.Schemas["Post"] = postSchema(defs, field.ContextView)
	spec.Components.Schemas["PostEdit"] = postSchema(defs, field.ContextEdit)
	spec.Components.Schemas["PostUpdate"] = updateSchema(defs)

	g.addPostsPaths(spec)
	g.addMetaPaths(spec, defs)
	g.addFieldsPath(spec)
	return spec
}

// FieldSchema maps a field schema to a JSON Schema property.
func FieldSchema(s field.Schema) *Schema {
	out := &Schema{Description: s.Description, Nullable: true, ReadOnly: s.Readonly}
	switch s.Type {
	case field.TypeString:
		out.Type = "string"
		out.Enum = s.Enum
		if s.MaxLength > 0 {
			n := s.MaxLength
			out.MaxLength = &n
		}
	case field.TypeInteger:
		out.Type = "integer"
		out.Format = "int64"
	case field.TypeNumber:
		out.Type = "number"
		out.Format = "double"
	case field.TypeBoolean:
		out.Type = "boolean"
	}
	return out
}

func postSchema(defs []field.Definition, c field.Context) *Schema {
	props := builtinProperties()
	for _, def := range defs {
		if def.Schema.InContext(c) {
			props[def.Name] = FieldSchema(def.Schema)
		}
	}
	return resourceSchema(props)
}

func updateSchema(defs []field.Definition) *Schema {
	props := map[string]*Schema{
		"title":   {Type: "string"},
		"content": {Type: "string"},
		"status":  {Type: "string", Enum: []string{post.StatusDraft, post.StatusPublish, post.StatusPrivate}},
	}
	for _, def := range defs {
		if def.Schema.Writable() {
			props[def.Name] = FieldSchema(def.Schema)
		}
	}
	return resourceSchema(props)
}

func builtinProperties() map[string]*Schema {
	return map[string]*Schema{
		"title":    {Type: "string"},
		"content":  {Type: "string"},
		"status":   {Type: "string", Enum: []string{post.StatusDraft, post.StatusPublish, post.StatusPrivate}},
		"author":   {Type: "string", ReadOnly: true},
		"date":     {Type: "string", Format: "date-time", ReadOnly: true},
		"modified": {Type: "string", Format: "date-time", ReadOnly: true},
	}
}

func resourceSchema(attributes map[string]*Schema) *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"data": {
				Type: "object",
				Properties: map[string]*Schema{
					"type":       {Type: "string", Enum: []string{post.ResourceType}},
					"id":         {Type: "string"},
					"attributes": {Type: "object", Properties: attributes},
				},
			},
		},
	}
}

func errorSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"errors": {
				Type: "array",
				Items: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"status": {Type: "string"},
						"code":   {Type: "string"},
						"title":  {Type: "string"},
						"detail": {Type: "string"},
					},
				},
			},
		},
	}
}

func ref(name string) map[string]MediaType {
	return map[string]MediaType{jsonAPI: {Schema: &Schema{Ref: "#/components/schemas/" + name}}}
}

func errorResponse(description string) Response {
	return Response{Description: description, Content: ref("Error")}
}

var (
	security = []SecurityRequirement{{"bearerAuth": {}}, {"apiKey": {}}}
	idParam  = Parameter{Name: "id", In: "path", Required: true, Description: "Post ID", Schema: &Schema{Type: "integer"}}
)

func (g *Generator) addPostsPaths(spec *Spec) {
	collection := g.basePath + "/posts"
	spec.Paths[collection] = PathItem{
		Get: &Operation{
			Tags:        []string{"posts"},
			Summary:     "List posts",
			OperationID: "listPosts",
			Parameters: []Parameter{
				{Name: "page[limit]", In: "query", Schema: &Schema{Type: "integer"}},
				{Name: "page[offset]", In: "query", Schema: &Schema{Type: "integer"}},
			},
			Responses: map[string]Response{
				"200": {Description: "Posts visible to the caller"},
			},
			Security: security,
		},
		Post: &Operation{
			Tags:        []string{"posts"},
			Summary:     "Create post",
			OperationID: "createPost",
			RequestBody: &RequestBody{Required: true, Content: ref("PostUpdate")},
			Responses: map[string]Response{
				"201": {Description: "Post created", Content: ref("PostEdit")},
				"400": errorResponse("Invalid attribute"),
				"403": errorResponse("Caller may not create posts"),
			},
			Security: security,
		},
	}

	update := &Operation{
		Tags:        []string{"posts"},
		Summary:     "Update post",
		OperationID: "updatePost",
		Parameters:  []Parameter{idParam},
		RequestBody: &RequestBody{Required: true, Content: ref("PostUpdate")},
		Responses: map[string]Response{
			"200": {Description: "Post updated", Content: ref("PostEdit")},
			"400": errorResponse("Invalid post ID or attribute"),
			"403": errorResponse("Caller may not edit the post"),
			"404": errorResponse("Post not found"),
			"500": errorResponse("Failed to update field"),
		},
		Security: security,
	}
	spec.Paths[collection+"/{id}"] = PathItem{
		Get: &Operation{
			Tags:        []string{"posts"},
			Summary:     "Get post",
			OperationID: "getPost",
			Parameters: []Parameter{
				idParam,
				{Name: "context", In: "query", Schema: &Schema{Type: "string", Enum: []string{string(field.ContextView), string(field.ContextEdit)}}},
			},
			Responses: map[string]Response{
				"200": {Description: "Post", Content: ref("Post")},
				"400": errorResponse("Invalid post ID"),
				"403": errorResponse("Caller may not edit the post"),
				"404": errorResponse("Post not found"),
			},
			Security: security,
		},
		Post:  update,
		Put:   update,
		Patch: update,
	}
}

func (g *Generator) addMetaPaths(spec *Spec, defs []field.Definition) {
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	fieldParam := Parameter{Name: "field", In: "path", Required: true, Schema: &Schema{Type: "string", Enum: names}}
	valueBody := map[string]MediaType{jsonAPI: {Schema: &Schema{
		Type:       "object",
		Properties: map[string]*Schema{"value": {Description: "New value; null deletes it", Nullable: true}},
	}}}

	spec.Paths[g.basePath+"/posts/{id}/meta/{field}"] = PathItem{
		Get: &Operation{
			Tags:        []string{"posts"},
			Summary:     "Read a registered field",
			OperationID: "getPostField",
			Parameters:  []Parameter{idParam, fieldParam},
			Responses: map[string]Response{
				"200": {Description: "Field value, null when unset", Content: valueBody},
				"400": errorResponse("Invalid post ID"),
				"403": errorResponse("Caller may not read the field"),
				"404": errorResponse("Post or field not found"),
			},
			Security: security,
		},
		Put: &Operation{
			Tags:        []string{"posts"},
			Summary:     "Write a registered field",
			OperationID: "putPostField",
			Parameters:  []Parameter{idParam, fieldParam},
			RequestBody: &RequestBody{Required: true, Content: valueBody},
			Responses: map[string]Response{
				"200": {Description: "Stored value", Content: valueBody},
				"400": errorResponse("Invalid post ID or value"),
				"403": errorResponse("Caller may not edit the post"),
				"404": errorResponse("Post or field not found"),
				"500": errorResponse("Failed to update field"),
			},
			Security: security,
		},
	}
}

func (g *Generator) addFieldsPath(spec *Spec) {
	spec.Paths[g.basePath+"/fields"] = PathItem{
		Get: &Operation{
			Tags:        []string{"fields"},
			Summary:     "List registered fields",
			OperationID: "listFields",
			Parameters: []Parameter{
				{Name: "type", In: "query", Description: "Resource type filter", Schema: &Schema{Type: "string"}},
			},
			Responses: map[string]Response{
				"200": {Description: "Registered fields"},
			},
		},
	}
}

// ToJSON renders the document as indented JSON.
func (spec *Spec) ToJSON() ([]byte, error) {
	b, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal openapi: %w", err)
	}
	return b, nil
}
