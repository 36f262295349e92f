package client

import (
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Specifications maps a specification key (e.g. "colour") to its value.
type Specifications map[string]string

// Apply returns a new full snapshot: edits overwrite or add keys, removals
// drop them. s is not modified.
func (s Specifications) Apply(edits map[string]string, removals []string) Specifications {
	out := maps.Clone(s)
	if out == nil {
		out = Specifications{}
	}
	maps.Copy(out, edits)
	for _, k := range removals {
		delete(out, k)
	}
	return out
}

// Change-log status labels as rendered by the API.
const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusDeclined  = "DECLINED"
	StatusCancelled = "CANCELLED"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone,omitempty"`
}

// Session is the result of a successful login.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Roles        []string `json:"roles"`
	User         *User    `json:"user"`
}

// HasRole reports whether the session user holds role ("owner" or "tradie").
func (s *Session) HasRole(role string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Overview struct {
	User struct {
		ID          uuid.UUID `json:"id"`
		DisplayName string    `json:"display_name"`
		Roles       []string  `json:"roles"`
	} `json:"user"`
	Properties []PropertySummary `json:"properties"`
}

type PropertySummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Address     *string   `json:"address,omitempty"`
	Description *string   `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// Property is a property with its spaces, assets and their change logs.
type Property struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Address        *string             `json:"address,omitempty"`
	Description    *string             `json:"description,omitempty"`
	TotalFloorArea decimal.NullDecimal `json:"total_floor_area"`
	BlockSize      decimal.NullDecimal `json:"block_size"`
	ImageURL       string              `json:"image_url,omitempty"`
	Spaces         []Space             `json:"spaces"`
}

// Asset finds an asset anywhere in the tree.
func (p *Property) Asset(id uuid.UUID) (*Asset, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Spaces {
		for j := range p.Spaces[i].Assets {
			if p.Spaces[i].Assets[j].ID == id {
				return &p.Spaces[i].Assets[j], true
			}
		}
	}
	return nil, false
}

type Space struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Type   *string   `json:"type,omitempty"`
	Assets []Asset   `json:"assets"`
}

type Asset struct {
	ID          uuid.UUID   `json:"id"`
	Description string      `json:"description"`
	AssetType   *AssetType  `json:"asset_type,omitempty"`
	Editable    bool        `json:"editable"`
	ChangeLogs  []ChangeLog `json:"change_logs"`
}

type AssetType struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Discipline *string   `json:"discipline,omitempty"`
}

type ChangeLog struct {
	ID                uuid.UUID      `json:"id"`
	AssetID           uuid.UUID      `json:"asset_id,omitempty"`
	Specifications    Specifications `json:"specifications"`
	ChangeDescription string         `json:"change_description"`
	Status            string         `json:"status"`
	ChangedByUserID   *uuid.UUID     `json:"changed_by_user_id,omitempty"`
	Author            string         `json:"author"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Request is a change request with its location, as listed for review.
type Request struct {
	ChangeLog
	AssetName    string    `json:"asset_name"`
	SpaceID      uuid.UUID `json:"space_id"`
	SpaceName    string    `json:"space_name"`
	PropertyID   uuid.UUID `json:"property_id"`
	PropertyName string    `json:"property_name"`
}

type RequestPage struct {
	Items      []Request `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// Scope is what a tradie may see and edit under one job.
type Scope struct {
	JobID            uuid.UUID   `json:"job_id"`
	Property         *Property   `json:"property"`
	EditableAssetIDs []uuid.UUID `json:"editable_asset_ids"`
}

// Editable reports whether assetID is in the job's scope.
func (s *Scope) Editable(assetID uuid.UUID) bool {
	if s == nil {
		return false
	}
	for _, id := range s.EditableAssetIDs {
		if id == assetID {
			return true
		}
	}
	return false
}

type Job struct {
	ID         uuid.UUID   `json:"id"`
	PropertyID uuid.UUID   `json:"property_id"`
	TradieID   *uuid.UUID  `json:"tradie_id,omitempty"`
	Status     string      `json:"status"`
	Expired    bool        `json:"expired"`
	PIN        string      `json:"pin,omitempty"`
	AssetIDs   []uuid.UUID `json:"asset_ids,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type Claim struct {
	Job        *Job      `json:"job"`
	PropertyID uuid.UUID `json:"property_id"`
}

type JobSummary struct {
	ID           uuid.UUID `json:"id"`
	PropertyID   uuid.UUID `json:"property_id"`
	PropertyName string    `json:"property_name"`
	Status       string    `json:"status"`
	AssetCount   int64     `json:"asset_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Specification is an asset's accepted state plus its visible history.
type Specification struct {
	AssetID uuid.UUID   `json:"asset_id"`
	Current *ChangeLog  `json:"current"`
	History []ChangeLog `json:"history"`
	Message string      `json:"message,omitempty"`
}

type Rollup struct {
	PropertyID  uuid.UUID         `json:"property_id"`
	Disciplines []DisciplineGroup `json:"disciplines"`
}

type DisciplineGroup struct {
	Discipline string      `json:"discipline"`
	Groups     []SpecGroup `json:"groups"`
}

type SpecGroup struct {
	Specifications Specifications `json:"specifications"`
	Locations      []Location     `json:"locations"`
}

type Location struct {
	SpaceID   uuid.UUID `json:"space_id"`
	SpaceName string    `json:"space_name"`
	AssetID   uuid.UUID `json:"asset_id"`
	AssetName string    `json:"asset_name"`
}

// ChangeInput is the body of a submitted change or owner history entry.
type ChangeInput struct {
	Description    string         `json:"description"`
	Specifications Specifications `json:"specifications"`
}

type CreateJobInput struct {
	AssetIDs []uuid.UUID `json:"asset_ids"`
	PIN      string      `json:"pin,omitempty"`
}

// FeedEvent is a refresh trigger pushed on the owner property feed.
type FeedEvent struct {
	Type  string `json:"type"`
	Table string `json:"table"`
}
