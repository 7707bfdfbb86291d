package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ayusman/visionctl/internal/combo"
)

// Binding maps a single gesture to an action.
type Binding struct {
	Action      string          `json:"action"`
	Params      json.RawMessage `json:"params,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Actions is the parsed action document: per-gesture bindings plus combos.
type Actions struct {
	Bindings map[string]Binding
	Combos   []combo.Definition
}

// legacyParamKeys are action parameters older documents keep at the top
// level of a combo or binding instead of under "params".
var legacyParamKeys = []string{"script", "keys", "method", "args"}

// ParseActions decodes an action document.
func ParseActions(data []byte) (Actions, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return Actions{}, fmt.Errorf("parse action document: %w", err)
	}

	out := Actions{Bindings: make(map[string]Binding)}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := doc[name]
		if name == "combos" {
			combos, err := parseCombos(raw)
			if err != nil {
				return Actions{}, err
			}
			out.Combos = combos
			continue
		}

		var b Binding
		if err := json.Unmarshal(raw, &b); err != nil {
			return Actions{}, fmt.Errorf("parse binding %q: %w", name, err)
		}
		params, err := mergeLegacyParams(raw, b.Params)
		if err != nil {
			return Actions{}, fmt.Errorf("parse binding %q: %w", name, err)
		}
		b.Params = params
		out.Bindings[strings.TrimSpace(name)] = b
	}

	return out, nil
}

func parseCombos(raw json.RawMessage) ([]combo.Definition, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse combos: %w", err)
	}

	defs := make([]combo.Definition, 0, len(items))
	for i, item := range items {
		var def combo.Definition
		if err := json.Unmarshal(item, &def); err != nil {
			return nil, fmt.Errorf("parse combo %d: %w", i, err)
		}
		if def.Name == "" {
			def.Name = "unnamed"
		}
		if def.Action == "" {
			def.Action = "none"
		}
		params, err := mergeLegacyParams(item, def.Params)
		if err != nil {
			return nil, fmt.Errorf("parse combo %q: %w", def.Name, err)
		}
		def.Params = params
		defs = append(defs, def)
	}
	return defs, nil
}

// mergeLegacyParams folds top-level legacy keys into params. Keys already
// present in params win.
func mergeLegacyParams(item, params json.RawMessage) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(item, &top); err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage)
	for _, key := range legacyParamKeys {
		if v, ok := top[key]; ok {
			merged[key] = v
		}
	}
	if len(merged) == 0 {
		return params, nil
	}

	if len(params) > 0 && string(params) != "null" {
		var explicit map[string]json.RawMessage
		if err := json.Unmarshal(params, &explicit); err != nil {
			return nil, fmt.Errorf("params must be an object: %w", err)
		}
		for k, v := range explicit {
			merged[k] = v
		}
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadActions reads and parses the action document at path.
func LoadActions(path string) (Actions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Actions{}, fmt.Errorf("read action document: %w", err)
	}
	return ParseActions(data)
}
