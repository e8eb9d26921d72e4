package model

import "context"

// Type is a schema node type in the subset of OpenAPI accepted by the model.
type Type string

const (
	TypeString  Type = "STRING"
	TypeNumber  Type = "NUMBER"
	TypeInteger Type = "INTEGER"
	TypeBoolean Type = "BOOLEAN"
	TypeArray   Type = "ARRAY"
	TypeObject  Type = "OBJECT"
)

// Schema constrains the JSON the model returns.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Request is a single prompt with a strict output schema.
type Request struct {
	Prompt string
	Schema *Schema
}

// Generator calls an external generative model and returns its JSON text output.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
