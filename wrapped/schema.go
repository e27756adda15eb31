package wrapped

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects the JSON Schema of T as a generic map. Nested types are inlined.
func GenerateSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schemaToMap(schema)
}

// ReportSchema describes Report for presentation clients.
func ReportSchema() (map[string]any, error) {
	m, err := GenerateSchema[Report]()
	if err != nil {
		return nil, fmt.Errorf("ReportSchema: %w", err)
	}
	m["title"] = "GPT Wrapped report"
	m["description"] = "Aggregate analytics over one date-filtered view of a chat export corpus."
	return m, nil
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
