package jsonapi

import (
	"encoding/json"
	"net/http"
)

// WriteDocument writes doc with the JSON:API content type.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteResource writes a single resource response.
func WriteResource(w http.ResponseWriter, status int, r Resource) {
	WriteDocument(w, status, NewDocument().DataResource(r).Build())
}

// WriteCollection writes a collection response with optional paging.
func WriteCollection(w http.ResponseWriter, resources []Resource, page *Page) {
	WriteDocument(w, http.StatusOK, NewDocument().DataCollection(resources).Page(page).Build())
}

// WriteCreated writes a 201 response with a Location header.
func WriteCreated(w http.ResponseWriter, r Resource, location string) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	WriteResource(w, http.StatusCreated, r)
}

// WriteMeta writes a document carrying only metadata.
func WriteMeta(w http.ResponseWriter, status int, meta Meta) {
	doc := NewDocument().Build()
	doc.Meta = meta
	WriteDocument(w, status, doc)
}

// WriteError writes one or more errors. The response status is the first
// error's status.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{ErrInternal("")}
	}
	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteDocument(w, status, NewDocument().Errors(errs...).Build())
}

// ReadDocument decodes a request body of the form
// {"data":{"type":...,"id":...,"attributes":{...}}}.
func ReadDocument(r *http.Request) (Resource, error) {
	var in struct {
		Data *Resource `json:"data"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		return Resource{}, err
	}
	if in.Data == nil {
		return Resource{}, errMissingData
	}
	if in.Data.Attributes == nil {
		in.Data.Attributes = map[string]any{}
	}
	return *in.Data, nil
}

type decodeError string

func (e decodeError) Error() string { return string(e) }

const errMissingData = decodeError("document has no data member")
