// Package schema validates request bodies against the JSON schemas stored
// per collection in the request_schemas table.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/pkg/repository"
)

// Loader loads and caches compiled JSON schemas from the repository.
type Loader struct {
	repo  repository.SchemaRepo
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func NewLoader(ctx context.Context, r repository.SchemaRepo) (*Loader, error) {
	l := &Loader{
		repo:  r,
		cache: make(map[string]*jsonschema.Schema),
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns the compiled schema of a collection.
func (l *Loader) Get(collection string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[collection]
	l.mu.RUnlock()
	return s, ok
}

// Reload loads all schemas from the DB and compiles them.
func (l *Loader) Reload(ctx context.Context) error {
	rows, err := l.repo.ListRequestSchemas(ctx)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	next := make(map[string]*jsonschema.Schema, len(rows))
	for collection, raw := range rows {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(raw), rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", collection, err)
		}
		next[collection] = rs
	}

	l.mu.Lock()
	l.cache = next
	l.mu.Unlock()
	return nil
}

// Put stores and compiles a schema for collection.
func (l *Loader) Put(ctx context.Context, collection, raw string) error {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(raw), rs); err != nil {
		return errs.Wrap(errs.KindValidation, err, "invalid schema for %s", collection)
	}
	if err := l.repo.PutRequestSchema(ctx, collection, raw); err != nil {
		return err
	}
	l.mu.Lock()
	l.cache[collection] = rs
	l.mu.Unlock()
	return nil
}

// Validate checks body against the collection's schema. Collections without
// a schema accept any JSON object. Failures are Validation errors whose
// fields are keyed by property name ("body" for the document itself).
func (l *Loader) Validate(ctx context.Context, collection string, body []byte) error {
	s, ok := l.Get(collection)
	if !ok {
		if !json.Valid(body) {
			return errs.Validation("malformed JSON body", nil)
		}
		return nil
	}
	keyErrs, err := s.ValidateBytes(ctx, body)
	if err != nil {
		return errs.Wrap(errs.KindValidation, err, "malformed JSON body")
	}
	if len(keyErrs) == 0 {
		return nil
	}

	fields := make(map[string]string, len(keyErrs))
	msgs := make([]string, 0, len(keyErrs))
	for _, ke := range keyErrs {
		key := strings.Trim(ke.PropertyPath, "/")
		if key == "" {
			key = "body"
		}
		if _, seen := fields[key]; !seen {
			fields[key] = ke.Message
		}
		msgs = append(msgs, ke.Message)
	}
	return errs.Validation(fmt.Sprintf("invalid %s: %s", collection, strings.Join(msgs, "; ")), fields)
}
