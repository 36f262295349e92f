package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

const tradiePrefix = "/api/v1/tradie"

// ClaimByQR claims the pending job for the property encoded in a scanned QR
// payload. A lost race comes back as a CONFLICT error; see IsClaimConflict.
func (c *Client) ClaimByQR(ctx context.Context, payload string, opts ...CallOption) (*Claim, error) {
	var out Claim
	if err := c.post(ctx, tradiePrefix+"/jobs/claim", map[string]string{"qr_payload": payload}, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClaimByProperty(ctx context.Context, propertyID uuid.UUID, opts ...CallOption) (*Claim, error) {
	var out Claim
	if err := c.post(ctx, tradiePrefix+"/jobs/claim", map[string]any{"property_id": propertyID}, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClaimWithPIN(ctx context.Context, propertyID uuid.UUID, pin string, opts ...CallOption) (*Claim, error) {
	var out Claim
	body := map[string]any{"property_id": propertyID, "pin": pin}
	if err := c.post(ctx, tradiePrefix+"/jobs/claim-pin", body, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Jobs(ctx context.Context) ([]JobSummary, error) {
	var out []JobSummary
	if err := c.get(ctx, tradiePrefix+"/jobs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Scope fetches the property tree as seen through one accepted job.
func (c *Client) Scope(ctx context.Context, propertyID, jobID uuid.UUID) (*Scope, error) {
	var out Scope
	if err := c.get(ctx, fmt.Sprintf("%s/properties/%s/jobs/%s/scope", tradiePrefix, propertyID, jobID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TradieRollup(ctx context.Context, propertyID, jobID uuid.UUID) (*Rollup, error) {
	var out Rollup
	if err := c.get(ctx, fmt.Sprintf("%s/properties/%s/jobs/%s/rollup", tradiePrefix, propertyID, jobID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Draft returns the specifications a new request should start from.
func (c *Client) Draft(ctx context.Context, jobID, assetID uuid.UUID) (Specifications, error) {
	var out struct {
		Specifications Specifications `json:"specifications"`
	}
	if err := c.get(ctx, fmt.Sprintf("%s/jobs/%s/assets/%s/draft", tradiePrefix, jobID, assetID), &out); err != nil {
		return nil, err
	}
	return out.Specifications, nil
}

func (c *Client) TradieSpecification(ctx context.Context, jobID, assetID uuid.UUID) (*Specification, error) {
	var out Specification
	if err := c.get(ctx, fmt.Sprintf("%s/jobs/%s/assets/%s/specification", tradiePrefix, jobID, assetID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitChange files a pending change request against an in-scope asset.
func (c *Client) SubmitChange(ctx context.Context, jobID, assetID uuid.UUID, in ChangeInput, opts ...CallOption) (*ChangeLog, error) {
	var out ChangeLog
	if err := c.post(ctx, fmt.Sprintf("%s/jobs/%s/assets/%s/changes", tradiePrefix, jobID, assetID), in, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProposeChange is the add-entry flow: it loads the asset's draft, applies
// the edits and removals, and submits the result as one full snapshot.
func (c *Client) ProposeChange(ctx context.Context, jobID, assetID uuid.UUID, description string, edits map[string]string, removals []string, opts ...CallOption) (*ChangeLog, error) {
	draft, err := c.Draft(ctx, jobID, assetID)
	if err != nil {
		return nil, err
	}
	return c.SubmitChange(ctx, jobID, assetID, ChangeInput{
		Description:    description,
		Specifications: draft.Apply(edits, removals),
	}, opts...)
}

// MyRequests returns one page of the caller's requests, newest first. Pass the
// previous page's NextCursor to continue; limit 0 uses the server default.
func (c *Client) MyRequests(ctx context.Context, limit int, cursor string) (*RequestPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := tradiePrefix + "/requests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out RequestPage
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelRequest withdraws one of the caller's pending requests.
func (c *Client) CancelRequest(ctx context.Context, changeLogID uuid.UUID, opts ...CallOption) error {
	return c.del(ctx, fmt.Sprintf("%s/requests/%s", tradiePrefix, changeLogID), nil, opts)
}
