package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ExtractJSONContent pulls a JSON document out of model output. Models
// sometimes wrap JSON in markdown fences or add prose around it; strip
// that before parsing.
func ExtractJSONContent(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)

	// Strip ```json ... ``` fences.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	// Fall back to the outermost JSON object/array if prose surrounds it.
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		objStart := strings.Index(trimmed, "{")
		arrStart := strings.Index(trimmed, "[")
		start := objStart
		if start == -1 || (arrStart != -1 && arrStart < start) {
			start = arrStart
		}
		if start == -1 {
			return nil, fmt.Errorf("no JSON found in content")
		}
		trimmed = trimmed[start:]
		end := strings.LastIndexAny(trimmed, "}]")
		if end == -1 {
			return nil, fmt.Errorf("unterminated JSON in content")
		}
		trimmed = trimmed[:end+1]
	}

	var probe any
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON in content: %w", err)
	}
	return json.RawMessage(trimmed), nil
}

// ValidateAgainstSchema checks a JSON document against a JSON Schema.
func ValidateAgainstSchema(schemaRaw, doc json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(schemaRaw))); err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(doc, &instance); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
