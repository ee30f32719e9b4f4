package openapi

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
)

// Doc serves the generated document through swag's registry so the
// Swagger UI handler can read it.
type Doc struct {
	gen    *Generator
	logger zerolog.Logger
}

// NewDoc creates a Doc backed by gen.
func NewDoc(gen *Generator, logger zerolog.Logger) *Doc {
	return &Doc{gen: gen, logger: logger}
}

// ReadDoc implements swag.Swagger. The document is regenerated on every
// call, so it always reflects the current registrations.
func (d *Doc) ReadDoc() string {
	b, err := d.gen.Generate().ToJSON()
	if err != nil {
		d.logger.Error().Err(err).Msg("openapi generation failed")
		return "{}"
	}
	return string(b)
}

var (
	registerMu sync.Mutex
	registered = map[string]*instance{}
)

// instance is what swag holds. swag panics on a second Register for a
// name, so later calls swap the Doc behind the instance instead.
type instance struct {
	mu  sync.RWMutex
	doc swag.Swagger
}

func (i *instance) ReadDoc() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.doc.ReadDoc()
}

// Register makes doc readable as swag instance name.
func Register(name string, doc swag.Swagger) {
	registerMu.Lock()
	defer registerMu.Unlock()

	if inst, ok := registered[name]; ok {
		inst.mu.Lock()
		inst.doc = doc
		inst.mu.Unlock()
		return
	}
	inst := &instance{doc: doc}
	registered[name] = inst
	swag.Register(name, inst)
}
