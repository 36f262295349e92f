// Package enums holds the string enums stored in Postgres and exchanged on
// the wire. Stored values are lower case; parsing ignores case and padding.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func parse[T ~string](kind string, known []T, raw string) (T, error) {
	want := T(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(known, want) {
		return want, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
