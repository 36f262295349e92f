package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/housebook/housebook-backend/pkg/config"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(config.StorageConfig{
		Endpoint:          "localhost:9000",
		AccessKey:         "access",
		SecretKey:         "secret-key-value",
		Bucket:            "property-images",
		Region:            "us-east-1",
		DownloadURLExpiry: 15 * time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestPresignedGetURLSignsObjectKey(t *testing.T) {
	client := testClient(t)

	raw, err := client.PresignedGetURL(context.Background(), "/properties/abc/cover.jpg")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/property-images/properties/abc/cover.jpg") {
		t.Fatalf("unexpected path %q", u.Path)
	}
	q := u.Query()
	if q.Get("X-Amz-Signature") == "" {
		t.Fatalf("missing signature in %q", raw)
	}
	if q.Get("X-Amz-Expires") != "900" {
		t.Fatalf("unexpected expiry %q", q.Get("X-Amz-Expires"))
	}
}

func TestPresignedGetURLRejectsBlankKey(t *testing.T) {
	client := testClient(t)
	if _, err := client.PresignedGetURL(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank key")
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	if _, err := NewClient(config.StorageConfig{Bucket: "b"}, nil); err == nil {
		t.Fatal("expected endpoint error")
	}
	var nilClient *Client
	if _, err := nilClient.PresignedGetURL(context.Background(), "k"); err == nil {
		t.Fatal("expected error from nil client")
	}
}
