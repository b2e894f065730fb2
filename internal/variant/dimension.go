package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// BranchAttribute is the dimension name every combination carries for its branch.
const BranchAttribute = "Sucursal"

// Branch is a business location. The set is closed; see Branches.
type Branch string

const (
	BranchLaPaz     Branch = "La Paz"
	BranchSantaCruz Branch = "Santa Cruz"
)

// Branches lists every branch a combination is generated for.
var Branches = []Branch{BranchLaPaz, BranchSantaCruz}

// ParseBranch matches a branch name ignoring case and surrounding space.
func ParseBranch(name string) (Branch, bool) {
	name = strings.TrimSpace(name)
	for _, branch := range Branches {
		if strings.EqualFold(string(branch), name) {
			return branch, true
		}
	}
	return "", false
}

// Dimension is a named variant attribute with its legal values.
type Dimension struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// MergeDimensions unions dimensions by name. Names are matched ignoring case
// and keep their first-seen spelling and position; values are color-stripped,
// deduplicated case-insensitively and sorted. Dimensions without values and
// any dimension named like the branch attribute are dropped.
func MergeDimensions(groups ...[]Dimension) []Dimension {
	merged := compact(slices.Concat(groups...), StripColorCode)
	for i := range merged {
		slices.Sort(merged[i].Values)
	}
	return merged
}

// compact merges duplicate names and drops empty dimensions, keeping input order.
func compact(dims []Dimension, clean func(string) string) []Dimension {
	var out []Dimension
	index := make(map[string]int)
	seen := make(map[string]map[string]struct{})

	for _, dim := range dims {
		name := canonicalName(dim.Name)
		if name == "" || strings.EqualFold(name, BranchAttribute) {
			continue
		}
		folded := strings.ToLower(name)
		for _, raw := range dim.Values {
			value := canonicalValue(clean(raw))
			if value == "" {
				continue
			}
			pos, ok := index[folded]
			if !ok {
				pos = len(out)
				index[folded] = pos
				seen[folded] = make(map[string]struct{})
				out = append(out, Dimension{Name: name})
			}
			lower := strings.ToLower(value)
			if _, dup := seen[folded][lower]; dup {
				continue
			}
			seen[folded][lower] = struct{}{}
			out[pos].Values = append(out[pos].Values, value)
		}
	}
	return out
}

// rawDimension accepts the spellings found in stored ingredient records.
type rawDimension struct {
	Name          string `json:"name"`
	Nombre        string `json:"nombre"`
	Values        []any  `json:"values"`
	Valores       []any  `json:"valores"`
	Posibilidades []any  `json:"posibilidades"`
}

func (r rawDimension) dimension() Dimension {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = strings.TrimSpace(r.Nombre)
	}
	values := r.Values
	if len(values) == 0 {
		values = r.Valores
	}
	if len(values) == 0 {
		values = r.Posibilidades
	}

	dim := Dimension{Name: name}
	for _, v := range values {
		switch value := v.(type) {
		case string:
			dim.Values = append(dim.Values, value)
		case float64, bool:
			dim.Values = append(dim.Values, fmt.Sprint(value))
		}
	}
	return dim
}

// ParseDimensions reads declared dimensions from a stored JSON document. It
// accepts a bare array, an object wrapping the array under "variants" or
// "variantes", and either shape encoded as a JSON string. Empty input yields
// no dimensions. Values keep their color codes; MergeDimensions strips them.
func ParseDimensions(raw []byte) ([]Dimension, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode dimensions string: %w", err)
		}
		return ParseDimensions([]byte(inner))
	}

	var entries []rawDimension
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode dimensions: %w", err)
		}
	case '{':
		var wrapper struct {
			Variants  []rawDimension `json:"variants"`
			Variantes []rawDimension `json:"variantes"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("decode dimensions: %w", err)
		}
		entries = wrapper.Variants
		if len(entries) == 0 {
			entries = wrapper.Variantes
		}
	default:
		return nil, fmt.Errorf("decode dimensions: unexpected document starting with %q", raw[0])
	}

	dims := make([]Dimension, 0, len(entries))
	for _, entry := range entries {
		dim := entry.dimension()
		if dim.Name == "" || len(dim.Values) == 0 {
			continue
		}
		dims = append(dims, dim)
	}
	return dims, nil
}
