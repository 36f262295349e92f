package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/housebook/housebook-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"hb-dev", "workflow", "projects/hb-dev/topics/workflow"},
		{"hb-dev", " projects/other/topics/x ", "projects/other/topics/x"},
		{"", "workflow", ""},
		{"hb-dev", "  ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TopicResourceName(tc.project, tc.name), "%q %q", tc.project, tc.name)
	}
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/creds.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds.json"}), 1)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("t", nil))
	assert.ErrorIs(t, classify("t", status.Error(codes.NotFound, "gone")), ErrUnknownTopic)

	flaky := status.Error(codes.Unavailable, "try later")
	err := classify("t", flaky)
	assert.NotErrorIs(t, err, ErrUnknownTopic)
	assert.ErrorIs(t, err, flaky)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	ctx := context.Background()
	_, err := c.Publish(ctx, "x", nil)
	assert.True(t, errors.Is(err, errNoClient))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(ctx))
}

func TestNewClientNeedsProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: " "}, config.PubSubConfig{EventsTopic: "t"}, nil)
	assert.ErrorIs(t, err, errNoProject)
}
