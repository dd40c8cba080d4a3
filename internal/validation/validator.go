// Package validation checks outbound DTOs against embedded JSON schemas
// before they are written to a response.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	SchemaQueue           = "queue"
	SchemaPost            = "post"
	SchemaDeployResponses = "deploy_responses"
	SchemaQueueStatus     = "queue_status"
)

var ErrSchemaValidation = errors.New("dto schema validation failed")

// ValidationIssue captures a single validation failure.
type ValidationIssue struct {
	Location string
	Message  string
}

// DTOValidationError lists every failing location of one document.
type DTOValidationError struct {
	Schema string
	Issues []ValidationIssue
}

func (e *DTOValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := issue.Location
		if location == "" {
			location = "#"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return fmt.Sprintf("%s (%s): %s", ErrSchemaValidation, e.Schema, strings.Join(parts, "; "))
}

func (e *DTOValidationError) Unwrap() error {
	return ErrSchemaValidation
}

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded schema once.
func NewValidator() (*Validator, error) {
	names := []string{SchemaQueue, SchemaPost, SchemaDeployResponses, SchemaQueueStatus}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		compiled, err := compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = compiled
	}
	return v, nil
}

func compile(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, err
	}
	resource := name + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}

// Validate renders dto as JSON and checks it against the named schema.
func (v *Validator) Validate(schema string, dto any) error {
	compiled, ok := v.schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	encoded, err := json.Marshal(dto)
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return err
	}
	if err := compiled.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &DTOValidationError{Schema: schema, Issues: collectValidationIssues(verr)}
		}
		return err
	}
	return nil
}

func collectValidationIssues(err *jsonschema.ValidationError) []ValidationIssue {
	issues := []ValidationIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
