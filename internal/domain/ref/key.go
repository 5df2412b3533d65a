// Package ref holds the canonical identifier used for courses, curriculum items,
// quizzes, questions and options.
//
// Legacy data carries these ids as strings, numbers or embedded documents
// ({"_id": ...}, {"$oid": ...}). Normalize is the only place such values are
// interpreted; everything downstream compares Key values.
package ref

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Key string

func (k Key) String() string { return string(k) }

func (k Key) IsZero() bool { return k == "" }

// Normalize converts any supported id representation into its canonical Key.
func Normalize(v any) Key {
	switch t := v.(type) {
	case nil:
		return ""
	case Key:
		return normalizeString(string(t))
	case *Key:
		if t == nil {
			return ""
		}
		return normalizeString(string(*t))
	case string:
		return normalizeString(t)
	case *string:
		if t == nil {
			return ""
		}
		return normalizeString(*t)
	case []byte:
		return normalizeString(string(t))
	case json.Number:
		return normalizeString(t.String())
	case uuid.UUID:
		if t == uuid.Nil {
			return ""
		}
		return Key(t.String())
	case int:
		return Key(strconv.FormatInt(int64(t), 10))
	case int32:
		return Key(strconv.FormatInt(int64(t), 10))
	case int64:
		return Key(strconv.FormatInt(t, 10))
	case uint:
		return Key(strconv.FormatUint(uint64(t), 10))
	case uint32:
		return Key(strconv.FormatUint(uint64(t), 10))
	case uint64:
		return Key(strconv.FormatUint(t, 10))
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case map[string]any:
		for _, field := range []string{"$oid", "_id", "id"} {
			if inner, ok := t[field]; ok {
				return Normalize(inner)
			}
		}
		return ""
	case fmt.Stringer:
		return normalizeString(t.String())
	default:
		return normalizeString(fmt.Sprint(v))
	}
}

// Set deduplicates keys, dropping empties and keeping first-seen order.
func Set(keys ...Key) []Key {
	out := make([]Key, 0, len(keys))
	seen := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		k = Normalize(k)
		if k.IsZero() {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func Contains(keys []Key, k Key) bool {
	k = Normalize(k)
	for _, have := range keys {
		if Normalize(have) == k {
			return true
		}
	}
	return false
}

func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(k))
}

func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("ref: decode id: %w", err)
	}
	switch raw.(type) {
	case string, json.Number, map[string]any:
		*k = Normalize(raw)
		return nil
	default:
		return fmt.Errorf("ref: unsupported id value %s", string(data))
	}
}

// UnmarshalYAML lets seed files use bare numbers or strings for ids.
func (k *Key) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("ref: decode id: %w", err)
	}
	*k = Normalize(raw)
	return nil
}

func normalizeString(s string) Key {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isObjectID(s) {
		return Key(strings.ToLower(s))
	}
	if len(s) == 36 {
		if u, err := uuid.Parse(s); err == nil {
			return Key(u.String())
		}
	}
	if n, ok := integralString(s); ok {
		return Key(n)
	}
	return Key(s)
}

func normalizeFloat(f float64) Key {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Key(strconv.FormatInt(int64(f), 10))
	}
	return Key(strconv.FormatFloat(f, 'f', -1, 64))
}

func isObjectID(s string) bool {
	if len(s) != 24 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// integralString reports whether s is an integer literal, optionally signed and
// optionally followed by a zero fraction ("42.0"), and returns it without
// leading zeros.
func integralString(s string) (string, bool) {
	sign := ""
	if s[0] == '+' || s[0] == '-' {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	if s == "" {
		return "", false
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if intPart == "" || !allDigits(intPart) {
		return "", false
	}
	if hasFrac {
		if frac == "" || strings.Trim(frac, "0") != "" {
			return "", false
		}
	}
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		return "0", true
	}
	return sign + intPart, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
