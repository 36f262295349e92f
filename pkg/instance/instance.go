// Package instance names the running process for logs and lock ownership.
package instance

import (
	"cmp"
	"os"
	"strings"
)

// ID returns WORKER_ID when set, else "<kind>@<hostname>".
func ID(kind string) string {
	if id := strings.TrimSpace(os.Getenv("WORKER_ID")); id != "" {
		return id
	}
	host, _ := os.Hostname()
	host = cmp.Or(host, "localhost")
	if kind == "" {
		return host
	}
	return kind + "@" + host
}
