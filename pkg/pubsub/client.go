// Package pubsub wraps the Pub/Sub v2 client the outbox relay publishes
// through. Publishers are created once per topic and reused.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/logger"
)

// ErrUnknownTopic means the topic is missing or could not be named.
// Retrying will not help.
var ErrUnknownTopic = errors.New("pubsub topic does not exist")

var (
	errNoProject = errors.New("gcp project id is required")
	errNoTopic   = errors.New("pubsub events topic is required")
	errNoClient  = errors.New("pubsub client not initialized")
)

type Client struct {
	api         *pubsub.Client
	projectID   string
	eventsTopic string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and checks that the events topic exists. The library
// honours PUBSUB_EMULATOR_HOST for local runs.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errNoProject
	}
	api, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		api:         api,
		projectID:   project,
		eventsTopic: strings.TrimSpace(cfg.EventsTopic),
		publishers:  make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_topic", c.resource(c.eventsTopic)), "pubsub client initialized")
	}
	return c, nil
}

// clientOptions prefers inline JSON credentials over a file path. With
// neither, application default credentials apply.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping confirms the events topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errNoClient
	}
	if c.eventsTopic == "" {
		return errNoTopic
	}
	_, err := c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.resource(c.eventsTopic)})
	return classify(c.eventsTopic, err)
}

// Publish sends msg and waits for the server-assigned message id.
func (c *Client) Publish(ctx context.Context, topic string, msg *pubsub.Message) (string, error) {
	pub, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	id, err := pub.Publish(ctx, msg).Get(ctx)
	return id, classify(topic, err)
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.api == nil {
		return nil, errNoClient
	}
	name := c.resource(topic)
	if name == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[name]
	if !ok {
		pub = c.api.Publisher(name)
		c.publishers[name] = pub
	}
	return pub, nil
}

// Close flushes every publisher, then closes the connection.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.api.Close()
}

func (c *Client) resource(topic string) string {
	return TopicResourceName(c.projectID, topic)
}

func classify(topic string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	return fmt.Errorf("pubsub topic %q: %w", topic, err)
}

// TopicResourceName expands a bare topic id to projects/<p>/topics/<id>.
// Full resource names pass through; "" means it cannot be named.
func TopicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}
