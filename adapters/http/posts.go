package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/artpar/postmeta/app"
	"github.com/artpar/postmeta/domain/field"
	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/pkg/jsonapi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Page size limits for post listings.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Handler serves the post and field endpoints.
type Handler struct {
	posts  *app.PostService
	fields *app.FieldService
	logger zerolog.Logger
}

// ListPosts handles GET /posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := jsonapi.ParsePage(r.URL.Query(), DefaultPageLimit, MaxPageLimit)

	views, total, err := h.posts.List(r.Context(), IdentityFrom(r.Context()), limit, offset)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(views))
	for _, v := range views {
		resources = append(resources, postResource(v))
	}
	jsonapi.WriteCollection(w, resources, &jsonapi.Page{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		BaseURL: r.URL.Path,
	})
}

// CreatePost handles POST /posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}

	in := app.CreateInput{Fields: make(map[string]any)}
	for name, v := range doc.Attributes {
		var target *string
		switch name {
		case "title":
			target = &in.Title
		case "content":
			target = &in.Content
		case "status":
			target = &in.Status
		default:
			in.Fields[name] = v
			continue
		}
		s, ok := v.(string)
		if !ok {
			jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, app.CodeInvalidParam, "value is not of type string").WithPointer(name))
			return
		}
		*target = s
	}

	view, err := h.posts.Create(r.Context(), IdentityFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonapi.WriteCreated(w, postResource(view), BasePath+"/posts/"+view.Post.IDString())
}

// GetPost handles GET /posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	view, err := h.posts.Get(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "id"), r.URL.Query().Get("context"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, postResource(view))
}

// UpdatePost handles PUT, POST and PATCH on /posts/{id}. Only the
// attributes present in the body are written; a null value deletes a
// registered field.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}

	body := doc.Attributes
	if doc.ID != "" {
		body["id"] = doc.ID
	}

	view, err := h.posts.Update(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, postResource(view))
}

// GetField handles GET /posts/{id}/meta/{field}.
func (h *Handler) GetField(w http.ResponseWriter, r *http.Request) {
	rawID, name := chi.URLParam(r, "id"), chi.URLParam(r, "field")

	value, err := h.posts.ReadField(r.Context(), IdentityFrom(r.Context()), rawID, name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, fieldValueResource(rawID, name, value))
}

// PutField handles PUT /posts/{id}/meta/{field} with a {"value": ...} body.
func (h *Handler) PutField(w http.ResponseWriter, r *http.Request) {
	rawID, name := chi.URLParam(r, "id"), chi.URLParam(r, "field")

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		jsonapi.WriteError(w, jsonapi.ErrBadRequest("Request body is not valid JSON."))
		return
	}
	raw, ok := body["value"]
	if !ok {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, app.CodeInvalidParam, "Missing parameter: value").WithPointer("value"))
		return
	}

	caller := IdentityFrom(r.Context())
	if err := h.posts.WriteField(r.Context(), caller, rawID, name, raw); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	value, err := h.posts.ReadField(r.Context(), caller, rawID, name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, fieldValueResource(rawID, name, value))
}

// ListFields handles GET /fields, optionally filtered by ?type=.
func (h *Handler) ListFields(w http.ResponseWriter, r *http.Request) {
	want := r.URL.Query().Get("type")

	var resources []jsonapi.Resource
	for _, e := range h.fields.Registry().List() {
		if want != "" && e.ResourceType != want {
			continue
		}
		resources = append(resources, FieldResource(e.ResourceType, e.Field))
	}
	jsonapi.WriteCollection(w, resources, nil)
}

func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (jsonapi.Resource, bool) {
	doc, err := jsonapi.ReadDocument(r)
	if err != nil {
		h.logger.Debug().Err(err).Msg("bad request document")
		jsonapi.WriteError(w, jsonapi.ErrBadRequest("Request body must be a JSON:API document with a data member."))
		return jsonapi.Resource{}, false
	}
	if doc.Type != "" && doc.Type != post.ResourceType {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusConflict, "type_mismatch", "Resource type must be "+post.ResourceType+"."))
		return jsonapi.Resource{}, false
	}
	return doc, true
}

func postResource(v app.PostView) jsonapi.Resource {
	p := v.Post
	return jsonapi.NewResource(post.ResourceType, p.IDString()).
		Attr("title", p.Title).
		Attr("content", p.Content).
		Attr("status", p.Status).
		Attr("author", p.AuthorID).
		Attr("date", p.CreatedAt.UTC().Format(time.RFC3339)).
		Attr("modified", p.UpdatedAt.UTC().Format(time.RFC3339)).
		Attrs(v.Fields).
		Link(BasePath + "/posts/" + p.IDString()).
		Meta("context", string(v.Context)).
		Build()
}

func fieldValueResource(rawID, name string, value any) jsonapi.Resource {
	return jsonapi.NewResource("post_meta", rawID+"/"+name).
		Attr("field", name).
		Attr("value", value).
		Build()
}

// FieldResource renders a registered field. Storage keys are internal and
// not exposed.
func FieldResource(resourceType string, def field.Definition) jsonapi.Resource {
	contexts := make([]string, 0, len(def.Schema.Context))
	for _, c := range def.Schema.Context {
		contexts = append(contexts, string(c))
	}
	return jsonapi.NewResource("field", resourceType+"/"+def.Name).
		Attr("name", def.Name).
		Attr("resource_type", resourceType).
		Attr("value_type", string(def.Schema.Type)).
		Attr("context", contexts).
		Attr("readonly", def.Schema.Readonly).
		Attr("gate", string(def.Gate)).
		AttrIf(def.Schema.Description != "", "description", def.Schema.Description).
		AttrIf(len(def.Schema.Enum) > 0, "enum", def.Schema.Enum).
		AttrIf(def.Schema.MaxLength > 0, "max_length", def.Schema.MaxLength).
		Build()
}
