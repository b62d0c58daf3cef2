package bambora

import (
	"fmt"
	"net/url"
	"strings"
)

// Field is one received callback parameter.
type Field struct {
	Key   string
	Value string
}

// Fields keeps callback parameters in the order the provider sent them.
// The order matters: it is the order the digest is computed in.
type Fields []Field

// Get returns the first value for key, or "" when absent.
func (f Fields) Get(key string) string {
	for _, field := range f {
		if field.Key == key {
			return field.Value
		}
	}
	return ""
}

// HashParams returns every value except the digest itself, order preserved.
func (f Fields) HashParams() []string {
	out := make([]string, 0, len(f))
	for _, field := range f {
		if field.Key == ParamHash {
			continue
		}
		out = append(out, field.Value)
	}
	return out
}

// Encode renders the fields back into a query string in their original order.
func (f Fields) Encode() string {
	var b strings.Builder
	for i, field := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(field.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(field.Value))
	}
	return b.String()
}

// ParseQuery splits a raw query string without losing parameter order,
// which url.ParseQuery does.
func ParseQuery(raw string) (Fields, error) {
	raw = strings.TrimPrefix(raw, "?")
	var out Fields
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid query key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid query value for %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: value})
	}
	return out, nil
}
