package variant

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// BaseKey is the encoding of a combination without attributes.
	BaseKey = "Base"

	attrSeparator   = "|"
	valueSeparator  = ":"
	legacySeparator = "="

	// attrSeparatorInValue stands in for "|" inside values.
	attrSeparatorInValue = "/"
)

var colorCodePattern = regexp.MustCompile(`\s*:?\s*#[0-9A-Fa-f]{6}\s*$`)

// nameSeparators strips the key separators from dimension names.
var nameSeparators = strings.NewReplacer(attrSeparator, "", valueSeparator, "", legacySeparator, "")

// Attr is one dimension/value pair of a combination.
type Attr struct {
	Name  string
	Value string
}

// Key is a canonical combination identity: attributes sorted by name with
// unique, capitalized names and trimmed non-empty values.
type Key []Attr

// NewKey canonicalizes an attribute map. Names are folded by case, so
// "COLOR" and "color" are the same dimension. Blank values are dropped. When
// two names collapse to the same canonical name the one that sorts first in
// the input wins. A "|" inside a value becomes "/".
func NewKey(attrs map[string]string) Key {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	slices.Sort(names)

	key := make(Key, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := canonicalName(raw)
		value := canonicalValue(attrs[raw])
		if name == "" || value == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		key = append(key, Attr{Name: name, Value: value})
	}
	slices.SortStableFunc(key, func(a, b Attr) int {
		return strings.Compare(a.Name, b.Name)
	})
	return key
}

// ParseKey decodes a stored key and canonicalizes it.
func ParseKey(encoded string) Key {
	return NewKey(Decode(encoded))
}

// String renders the key in the stored "Name:Value|Name:Value" format.
func (k Key) String() string {
	if len(k) == 0 {
		return BaseKey
	}
	var b strings.Builder
	for i, attr := range k {
		if i > 0 {
			b.WriteString(attrSeparator)
		}
		b.WriteString(attr.Name)
		b.WriteString(valueSeparator)
		b.WriteString(attr.Value)
	}
	return b.String()
}

// Map returns the attributes as a fresh map.
func (k Key) Map() map[string]string {
	out := make(map[string]string, len(k))
	for _, attr := range k {
		out[attr.Name] = attr.Value
	}
	return out
}

// Get looks up a dimension value ignoring name case.
func (k Key) Get(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, attr := range k {
		if strings.EqualFold(attr.Name, name) {
			return attr.Value, true
		}
	}
	return "", false
}

// With returns a copy of k with name set to value.
func (k Key) With(name, value string) Key {
	attrs := k.Map()
	for existing := range attrs {
		if strings.EqualFold(existing, name) {
			delete(attrs, existing)
		}
	}
	attrs[name] = value
	return NewKey(attrs)
}

// Without returns a copy of k with name removed.
func (k Key) Without(name string) Key {
	out := make(Key, 0, len(k))
	for _, attr := range k {
		if !strings.EqualFold(attr.Name, name) {
			out = append(out, attr)
		}
	}
	return out
}

// Encode produces the canonical string key of an attribute map. Decode
// returns the canonical attributes: Decode(Encode(m)) equals m when m already
// holds canonical names and trimmed values without "|".
func Encode(attrs map[string]string) string {
	return NewKey(attrs).String()
}

// Decode parses a stored key into an attribute map. Segments are split on the
// first ":" or legacy "=" separator, whichever comes first. Segments missing a
// name or value are skipped.
func Decode(encoded string) map[string]string {
	out := make(map[string]string)
	encoded = strings.TrimSpace(encoded)
	if encoded == "" || encoded == BaseKey {
		return out
	}

	for _, segment := range strings.Split(encoded, attrSeparator) {
		idx := separatorIndex(segment)
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(segment[:idx])
		value := strings.TrimSpace(segment[idx+1:])
		if name == "" || value == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// Equivalent reports whether two stored keys describe the same combination,
// ignoring order, name and value case, and trailing color codes.
func Equivalent(a, b string) bool {
	left := foldAttrs(Decode(a))
	right := foldAttrs(Decode(b))
	if len(left) != len(right) {
		return false
	}
	for name, value := range left {
		other, ok := right[name]
		if !ok || other != value {
			return false
		}
	}
	return true
}

// SameValue compares two dimension values the way Equivalent does.
func SameValue(a, b string) bool {
	return foldValue(a) == foldValue(b)
}

// StripColorCode removes a trailing "#RRGGBB" color code and its separator,
// so "Blanco:#ffffff" becomes "Blanco". A value made only of a color code is
// returned trimmed but otherwise unchanged.
func StripColorCode(value string) string {
	trimmed := strings.TrimSpace(value)
	stripped := strings.TrimSpace(colorCodePattern.ReplaceAllString(trimmed, ""))
	if stripped == "" {
		return trimmed
	}
	return stripped
}

func separatorIndex(segment string) int {
	colon := strings.Index(segment, valueSeparator)
	equals := strings.Index(segment, legacySeparator)
	switch {
	case colon < 0:
		return equals
	case equals < 0:
		return colon
	default:
		return min(colon, equals)
	}
}

func foldAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for name, value := range attrs {
		out[strings.ToLower(norm.NFC.String(name))] = foldValue(value)
	}
	return out
}

func foldValue(value string) string {
	return strings.ToLower(norm.NFC.String(StripColorCode(value)))
}

// canonicalName folds a dimension name to one spelling: separators removed,
// first letter upper case, the rest lower case. "COLOR", "color" and "Color"
// all become "Color".
func canonicalName(name string) string {
	name = nameSeparators.Replace(name)
	name = strings.ToLower(norm.NFC.String(strings.TrimSpace(name)))
	if name == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + name[size:]
}

// canonicalValue trims a value and replaces the attribute separator, which
// a stored key cannot carry inside a value.
func canonicalValue(value string) string {
	value = strings.ReplaceAll(value, attrSeparator, attrSeparatorInValue)
	return norm.NFC.String(strings.TrimSpace(value))
}
