package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const ownerPrefix = "/api/v1/owner"

func (c *Client) Properties(ctx context.Context) (*Overview, error) {
	var out Overview
	if err := c.get(ctx, ownerPrefix+"/properties", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Property(ctx context.Context, propertyID uuid.UUID) (*Property, error) {
	var out Property
	if err := c.get(ctx, fmt.Sprintf("%s/properties/%s", ownerPrefix, propertyID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OwnerRollup(ctx context.Context, propertyID uuid.UUID) (*Rollup, error) {
	var out Rollup
	if err := c.get(ctx, fmt.Sprintf("%s/properties/%s/rollup", ownerPrefix, propertyID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingRequests lists the property's change requests awaiting review.
func (c *Client) PendingRequests(ctx context.Context, propertyID uuid.UUID) ([]Request, error) {
	var out []Request
	if err := c.get(ctx, fmt.Sprintf("%s/properties/%s/requests", ownerPrefix, propertyID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSpace(ctx context.Context, propertyID uuid.UUID, name string, spaceType *string, opts ...CallOption) (*Space, error) {
	body := map[string]any{"name": name}
	if spaceType != nil {
		body["type"] = *spaceType
	}
	var out Space
	if err := c.post(ctx, fmt.Sprintf("%s/properties/%s/spaces", ownerPrefix, propertyID), body, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateAsset(ctx context.Context, spaceID uuid.UUID, description string, assetTypeID *uuid.UUID, opts ...CallOption) (*Asset, error) {
	body := map[string]any{"description": description}
	if assetTypeID != nil {
		body["asset_type_id"] = *assetTypeID
	}
	var out Asset
	if err := c.post(ctx, fmt.Sprintf("%s/spaces/%s/assets", ownerPrefix, spaceID), body, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateJob opens a job over the given assets. An empty PIN lets the server pick one.
func (c *Client) CreateJob(ctx context.Context, propertyID uuid.UUID, in CreateJobInput, opts ...CallOption) (*Job, error) {
	var out Job
	if err := c.post(ctx, fmt.Sprintf("%s/properties/%s/jobs", ownerPrefix, propertyID), in, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// OwnerSpecification returns the asset's accepted state and full history.
func (c *Client) OwnerSpecification(ctx context.Context, assetID uuid.UUID) (*Specification, error) {
	var out Specification
	if err := c.get(ctx, fmt.Sprintf("%s/assets/%s/specification", ownerPrefix, assetID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OwnerDraft(ctx context.Context, assetID uuid.UUID) (Specifications, error) {
	var out struct {
		Specifications Specifications `json:"specifications"`
	}
	if err := c.get(ctx, fmt.Sprintf("%s/assets/%s/draft", ownerPrefix, assetID), &out); err != nil {
		return nil, err
	}
	return out.Specifications, nil
}

// AddHistory records an accepted entry directly, bypassing review.
func (c *Client) AddHistory(ctx context.Context, assetID uuid.UUID, in ChangeInput, opts ...CallOption) (*ChangeLog, error) {
	var out ChangeLog
	if err := c.post(ctx, fmt.Sprintf("%s/assets/%s/history", ownerPrefix, assetID), in, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Review accepts or declines a pending request; status is ACCEPTED or DECLINED.
func (c *Client) Review(ctx context.Context, changeLogID uuid.UUID, status string, opts ...CallOption) (*ChangeLog, error) {
	var out ChangeLog
	body := map[string]string{"status": status}
	if err := c.post(ctx, fmt.Sprintf("%s/requests/%s/status", ownerPrefix, changeLogID), body, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}
