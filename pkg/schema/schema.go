// Package schema compiles JSON Schemas for the execution request and
// profile documents. The request schema runs as a fast, independent reject
// path ahead of the hand-written strict decoder in pkg/model; either
// detector tripping is sufficient cause to deny a request, they are
// redundant by design. The profile schema is exposed as ValidateProfile;
// the profile loader does not call it.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const requestSchemaURL = "https://execgate.local/schema/execution_request.json"
const profileSchemaURL = "https://execgate.local/schema/execution_profile.json"

const requestSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"additionalProperties": false,
	"required": ["request_id", "actor", "tool", "profile", "context"],
	"properties": {
		"request_id": {"type": "string", "minLength": 1},
		"submitted_at": {"type": "string"},
		"actor": {
			"type": "object",
			"additionalProperties": false,
			"required": ["principal_id", "principal_type", "attributes"],
			"properties": {
				"principal_id": {"type": "string", "minLength": 1},
				"principal_type": {"type": "string", "minLength": 1},
				"attributes": {"type": "object", "additionalProperties": {"type": "string"}}
			}
		},
		"tool": {
			"type": "object",
			"additionalProperties": false,
			"required": ["name", "args"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"args": {}
			}
		},
		"profile": {
			"type": "object",
			"additionalProperties": false,
			"required": ["id", "version"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"version": {"type": "string", "minLength": 1}
			}
		},
		"context": {
			"type": "object",
			"additionalProperties": false,
			"required": ["snapshot", "snapshot_hash"],
			"properties": {
				"snapshot": {},
				"snapshot_hash": {"type": "string", "minLength": 1}
			}
		},
		"controls": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"approval_token": {"type": "string"},
				"nonce": {"type": "string"}
			}
		}
	}
}`

const profileSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"additionalProperties": false,
	"required": ["profile_id", "profile_version", "allowed_tools", "default"],
	"properties": {
		"profile_id": {"type": "string", "minLength": 1},
		"profile_version": {"type": "string", "minLength": 1},
		"default": {"type": "string"},
		"allowed_tools": {
			"type": "array",
			"items": {
				"type": "object",
				"additionalProperties": false,
				"required": ["name", "required_controls"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"required_controls": {
						"type": "object",
						"additionalProperties": false,
						"required": ["approval_token"],
						"properties": {"approval_token": {"type": "boolean"}}
					},
					"constraints": {
						"type": "object",
						"additionalProperties": false,
						"properties": {
							"arg_rules": {
								"type": "array",
								"items": {
									"type": "object",
									"additionalProperties": false,
									"required": ["path", "type"],
									"properties": {
										"path": {"type": "string", "minLength": 1},
										"type": {"type": "string", "enum": ["string", "number", "bool"]},
										"pattern": {"type": "string"},
										"max_len": {"type": "integer", "minimum": 0},
										"enum": {"type": "array", "items": {"type": "string"}},
										"min": {"type": "number"},
										"max": {"type": "number"}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

// Validator holds the compiled schemas, built once at process start.
type Validator struct {
	request *jsonschema.Schema
	profile *jsonschema.Schema
}

// Compile builds both schemas. A failure here is a programming error (a
// malformed embedded schema), not a runtime condition — callers should
// treat it as fatal at startup.
func Compile() (*Validator, error) {
	req, err := compile(requestSchemaURL, requestSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("schema: compile request schema: %w", err)
	}
	prof, err := compile(profileSchemaURL, profileSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("schema: compile profile schema: %w", err)
	}
	return &Validator{request: req, profile: prof}, nil
}

func compile(url, src string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// ValidateRequest runs the compiled request schema against raw bytes.
func (v *Validator) ValidateRequest(data []byte) error {
	return validate(v.request, data)
}

// ValidateProfile runs the compiled profile schema against raw bytes.
func (v *Validator) ValidateProfile(data []byte) error {
	return validate(v.profile, data)
}

func validate(s *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("schema: decode: %w", err)
	}
	return s.Validate(doc)
}
