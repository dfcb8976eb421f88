package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/schema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// objectSchema renders eino parameter declarations as a JSON Schema object.
// Enum values are left out: they are advertised to the model, but vocabulary
// checks (such as case-insensitive modes) belong to the domain.
func objectSchema(params map[string]*schema.ParameterInfo) map[string]any {
	props := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for name, p := range params {
		if p == nil {
			continue
		}
		props[name] = paramSchema(p)
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func paramSchema(p *schema.ParameterInfo) map[string]any {
	if p.Type == schema.Object {
		out := objectSchema(p.SubParams)
		if p.Desc != "" {
			out["description"] = p.Desc
		}
		return out
	}

	out := map[string]any{"type": string(p.Type)}
	if p.Desc != "" {
		out["description"] = p.Desc
	}
	if p.Type == schema.Array && p.ElemInfo != nil {
		out["items"] = paramSchema(p.ElemInfo)
	}
	return out
}

func compileParams(tool string, params map[string]*schema.ParameterInfo) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(objectSchema(params))
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", tool, err)
	}

	url := "tool://" + tool + ".json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema for %s: %w", tool, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", tool, err)
	}
	return compiled, nil
}

// normalizeArgs reshapes caller arguments into plain JSON values (maps, slices,
// json.Number) so schema validation and decoding see one representation.
func normalizeArgs(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
