package sift

import (
	"encoding/json"
	"fmt"
)

// Entity identifies one of the three record kinds a query can target.
type Entity string

const (
	EntityClients Entity = "clients"
	EntityWorkers Entity = "workers"
	EntityTasks   Entity = "tasks"
)

// Valid reports whether the entity is one of the supported record kinds.
func (e Entity) Valid() bool {
	switch e {
	case EntityClients, EntityWorkers, EntityTasks:
		return true
	}
	return false
}

// Entities lists all supported entities in a fixed order.
func Entities() []Entity {
	return []Entity{EntityClients, EntityWorkers, EntityTasks}
}

// Row is a loosely-typed record. Values may be scalars, native lists,
// JSON-array-encoded strings, or comma/semicolon-separated strings.
type Row map[string]any

// FieldType classifies a column after schema inference.
type FieldType string

const (
	FieldNumber  FieldType = "number"
	FieldString  FieldType = "string"
	FieldArray   FieldType = "array"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
	FieldUnknown FieldType = "unknown"
)

// FieldSchema is the derived per-column profile. It is recomputed from the
// current rows on every query and never persisted.
type FieldSchema struct {
	Name    string    `json:"name"`
	Type    FieldType `json:"type"`
	Samples []string  `json:"samples,omitempty"`
}

// Source tags which pipeline tier produced a resolved filter.
type Source string

const (
	SourceDeterministic Source = "deterministic"
	SourceAI            Source = "ai"
	SourceHeuristic     Source = "heuristic"
)

// SearchRequest is the input to the orchestration boundary.
type SearchRequest struct {
	Entity Entity        `json:"entity"`
	Text   string        `json:"text"`
	Schema []FieldSchema `json:"schema,omitempty"`
}

// SearchResponse is the success envelope returned for a resolved query.
type SearchResponse struct {
	Kind   string `json:"kind"`
	Entity Entity `json:"entity"`
	Filter Node   `json:"filter"`
	Source Source `json:"source"`
}

// UnmarshalJSON decodes the polymorphic filter node through DecodeNode.
func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	type alias struct {
		Kind   string          `json:"kind"`
		Entity Entity          `json:"entity"`
		Filter json.RawMessage `json:"filter"`
		Source Source          `json:"source"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.Kind = a.Kind
	r.Entity = a.Entity
	r.Source = a.Source
	r.Filter = nil
	if len(a.Filter) > 0 && string(a.Filter) != "null" {
		node, err := DecodeNode(a.Filter)
		if err != nil {
			return fmt.Errorf("decode filter: %w", err)
		}
		r.Filter = node
	}
	return nil
}
