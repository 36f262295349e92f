package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Specifications is the key/value snapshot recorded on every change log row.
// Keys are unique; values are free text.
type Specifications map[string]string

func (s *Specifications) Scan(src any) error {
	if src == nil {
		*s = Specifications{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("Specifications: unsupported Scan type %T", src)
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		*s = Specifications{}
		return nil
	}

	out := Specifications{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("Specifications: decode: %w", err)
	}
	*s = out
	return nil
}

func (s Specifications) Value() (driver.Value, error) {
	return s.Canonical(), nil
}

// GormDataType keeps AutoMigrate and sqlite DDL aligned with the jsonb column.
func (Specifications) GormDataType() string {
	return "jsonb"
}

// Keys returns the keys in ascending order.
func (s Specifications) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s Specifications) Clone() Specifications {
	out := make(Specifications, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Canonical renders the snapshot as JSON with keys sorted, so equal snapshots
// always render identically.
func (s Specifications) Canonical() string {
	if len(s) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		val, _ := json.Marshal(s[k])
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.String()
}

func (s Specifications) Equal(other Specifications) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// BlankKey returns the first key that is empty after trimming, if any.
func (s Specifications) BlankKey() (string, bool) {
	for k := range s {
		if strings.TrimSpace(k) == "" {
			return k, true
		}
	}
	return "", false
}
