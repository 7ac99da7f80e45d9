package providers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Messages lista de errores que los proveedores envían con formas distintas:
// "texto", ["a","b"], [{"message":"a"}] o {"campo":["a","b"]}.
type Messages []string

// UnmarshalJSON acepta cualquiera de las formas anteriores; null deja la lista vacía.
func (m *Messages) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = flatten("", raw)
	return nil
}

func flatten(field string, v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			if field != "" {
				return []string{field + ": " + s}
			}
			return []string{s}
		}
		return nil
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, flatten(field, item)...)
		}
		return out
	case map[string]any:
		if msg, ok := t["message"].(string); ok {
			return flatten(field, msg)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flatten(k, t[k])...)
		}
		return out
	default:
		return flatten(field, fmt.Sprint(t))
	}
}
