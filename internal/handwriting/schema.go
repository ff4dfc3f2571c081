package handwriting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// outputSchema describes what the recognizer script prints on stdout.
func outputSchema() map[string]any {
	field := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":      map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number"},
		},
		"required": []string{"value", "confidence"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"license_number": field,
			"name_spouse1":   field,
			"name_spouse2":   field,
			"marriage_date":  field,
			"raw_text":       map[string]any{"type": "string"},
			"success":        map[string]any{"type": "boolean"},
			"error":          map[string]any{"type": []string{"string", "null"}},
		},
		"required": []string{"success"},
	}
}

var (
	compiledOnce sync.Once
	compiled     *jsonschema.Schema
	compileErr   error
)

func schema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		b, err := json.Marshal(outputSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("handwriting.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile("handwriting.json")
	})
	return compiled, compileErr
}

// validateOutput checks raw recognizer JSON against the output schema.
func validateOutput(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal output: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("output does not match schema: %w", err)
	}
	return nil
}

// jsonObject trims anything printed around the outermost JSON object.
func jsonObject(out []byte) ([]byte, bool) {
	start := bytes.IndexByte(out, '{')
	end := bytes.LastIndexByte(out, '}')
	if start < 0 || end < start {
		return nil, false
	}
	return out[start : end+1], true
}
