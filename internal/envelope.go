package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lychee-technology/sift"
)

// Errors distinguishing how envelope parsing failed; the pipeline maps
// them onto the caller-visible failure reasons.
var (
	ErrNoObject    = errors.New("no JSON object found in model output")
	ErrInvalidJSON = errors.New("model output is not a valid filter envelope")
)

// envelopeSchemaJSON constrains the accepted model output before any of
// it is trusted: a filter envelope or a bare node, with a recursive
// node definition.
const envelopeSchemaJSON = `{
	"type": "object",
	"properties": {
		"kind": {"type": "string"},
		"entity": {"type": "string"},
		"filter": {"$ref": "#/$defs/node"},
		"op": {"type": "string"}
	},
	"$defs": {
		"node": {
			"type": "object",
			"properties": {
				"op": {"type": "string"},
				"field": {"type": "string"},
				"cmp": {"type": "string"},
				"children": {
					"type": "array",
					"items": {"$ref": "#/$defs/node"}
				},
				"values": {"type": "array"}
			},
			"required": ["op"]
		}
	}
}`

var (
	envelopeSchemaOnce sync.Once
	envelopeSchema     *jsonschema.Resolved
	envelopeSchemaErr  error
)

func resolvedEnvelopeSchema() (*jsonschema.Resolved, error) {
	envelopeSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal([]byte(envelopeSchemaJSON), &schema); err != nil {
			envelopeSchemaErr = fmt.Errorf("unmarshal envelope schema: %w", err)
			return
		}
		envelopeSchema, envelopeSchemaErr = schema.Resolve(&jsonschema.ResolveOptions{})
	})
	return envelopeSchema, envelopeSchemaErr
}

// ParseEnvelope turns raw model output into a filter node. It extracts
// the first balanced object, strict-parses it, falls back to repaired
// text on failure, validates the shape against the envelope schema, and
// finally decodes the node. Either a {"filter": {...}} envelope or a
// bare node object is accepted.
func ParseEnvelope(raw string) (sift.Node, error) {
	extracted, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, ErrNoObject
	}

	payload := []byte(extracted)
	var generic map[string]any
	if err := json.Unmarshal(payload, &generic); err != nil {
		repaired := RepairJSON(extracted)
		if err := json.Unmarshal([]byte(repaired), &generic); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		payload = []byte(repaired)
	}

	if schema, err := resolvedEnvelopeSchema(); err == nil {
		if err := schema.Validate(generic); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}

	var envelope struct {
		Filter json.RawMessage `json:"filter"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.Filter) > 0 && string(envelope.Filter) != "null" {
		node, err := sift.DecodeNode(envelope.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return node, nil
	}

	// Some models skip the envelope and answer with the node itself.
	node, err := sift.DecodeNode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return node, nil
}
