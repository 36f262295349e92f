package jobs

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

const msgBadQR = "QR code does not contain a property id"

// ParseQRPayload extracts a property id from a scanned QR code. It accepts a
// bare id or a URI whose last path segment is the id, e.g.
// housebook://property/<id>.
func ParseQRPayload(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.Invalid("qr_payload", "required", msgBadQR)
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return uuid.Nil, pkgerrors.Invalid("qr_payload", "format", msgBadQR)
	}
	path := strings.Trim(u.Host+"/"+strings.Trim(u.Path, "/"), "/")
	segments := strings.Split(path, "/")
	id, err := uuid.Parse(segments[len(segments)-1])
	if err != nil {
		return uuid.Nil, pkgerrors.Invalid("qr_payload", "format", msgBadQR)
	}
	return id, nil
}
