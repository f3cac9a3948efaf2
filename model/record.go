package model

import (
	"fmt"

	"github.com/google/uuid"
)

const IDField = "id"

// Record is an entity held by the collection store. Only the id field is
// interpreted; everything else is an opaque payload.
type Record map[string]any

// NewRecord copies fields and assigns a random id when none is present,
// so an optimistic create can be shown before the backend confirms it.
func NewRecord(fields map[string]any) Record {
	r := make(Record, len(fields)+1)
	for k, v := range fields {
		r[k] = v
	}
	if r.ID() == "" {
		r[IDField] = uuid.NewString()
	}
	return r
}

func (r Record) ID() string {
	switch id := r[IDField].(type) {
	case nil:
		return ""
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Merge returns a shallow copy of r with patch applied on top.
// Nested maps and slices are replaced wholesale, never merged.
func (r Record) Merge(patch Record) Record {
	m := make(Record, len(r)+len(patch))
	for k, v := range r {
		m[k] = v
	}
	for k, v := range patch {
		m[k] = v
	}
	return m
}
