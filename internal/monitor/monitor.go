// Package monitor validates inbound RPC payloads against per-operation JSON
// schemas before any handler logic runs. Schemas are embedded at build time
// so the contract the server enforces is the contract it shipped with.
package monitor

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ContractMonitor holds the compiled schemas keyed by operation name.
type ContractMonitor struct {
	schemas map[string]*gojsonschema.Schema
}

// NewContractMonitor compiles every embedded schema. The operation name is
// the schema's file name without extension.
func NewContractMonitor() (*ContractMonitor, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("reading embedded schemas: %w", err)
	}
	schemas := make(map[string]*gojsonschema.Schema, len(entries))
	for _, entry := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", entry.Name(), err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compiling schema %s: %w", entry.Name(), err)
		}
		op := strings.TrimSuffix(entry.Name(), ".json")
		schemas[op] = schema
	}
	return &ContractMonitor{schemas: schemas}, nil
}

// Operations lists the operation names with a registered schema.
func (cm *ContractMonitor) Operations() []string {
	ops := make([]string, 0, len(cm.schemas))
	for op := range cm.schemas {
		ops = append(ops, op)
	}
	return ops
}

// Validate checks body against the operation's schema. Operations without a
// registered schema pass; not every endpoint carries a monitored contract.
func (cm *ContractMonitor) Validate(operation string, body []byte) (bool, []string, error) {
	schema, ok := cm.schemas[operation]
	if !ok {
		return true, nil, nil
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return false, nil, fmt.Errorf("validating %s payload: %w", operation, err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, errs, nil
}

// FormatErrors joins validation errors into one response-ready string.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "validation errors: " + strings.Join(validationErrors, "; ")
}
