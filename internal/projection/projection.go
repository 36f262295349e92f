// Package projection derives read views from change log history: the
// current specification of an asset, its accepted history and the
// property-wide rollup by discipline.
package projection

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/internal/properties"
	"github.com/housebook/housebook-backend/pkg/db/models"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	"github.com/housebook/housebook-backend/pkg/enums"
)

// DefaultDiscipline buckets assets whose type has no discipline.
const DefaultDiscipline = "General"

// NoSpecificationMessage is shown when an asset has no accepted row yet.
const NoSpecificationMessage = "no accepted specifications yet"

type ChangeLogView struct {
	ID                uuid.UUID              `json:"id"`
	AssetID           uuid.UUID              `json:"asset_id"`
	Specifications    dbtypes.Specifications `json:"specifications"`
	ChangeDescription string                 `json:"change_description"`
	Status            string                 `json:"status"`
	ChangedByUserID   *uuid.UUID             `json:"changed_by_user_id,omitempty"`
	Author            string                 `json:"author"`
	CreatedAt         time.Time              `json:"created_at"`
}

func viewOf(row *models.ChangeLog) ChangeLogView {
	return ChangeLogView{
		ID:                row.ID,
		AssetID:           row.AssetID,
		Specifications:    row.Specifications.Clone(),
		ChangeDescription: row.ChangeDescription,
		Status:            row.Status.API(),
		ChangedByUserID:   row.ChangedByUserID,
		Author:            row.AuthorName(),
		CreatedAt:         row.CreatedAt,
	}
}

// newer orders rows by created_at descending, then id descending.
func newer(a, b *models.ChangeLog) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func acceptedNewestFirst(rows []models.ChangeLog) []*models.ChangeLog {
	out := make([]*models.ChangeLog, 0, len(rows))
	for i := range rows {
		if rows[i].Status == enums.ChangeLogStatusAccepted {
			out = append(out, &rows[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out
}

// Current returns the newest accepted row, or nil when none exists.
// Pending and declined rows never count, however recent.
func Current(rows []models.ChangeLog) *ChangeLogView {
	accepted := acceptedNewestFirst(rows)
	if len(accepted) == 0 {
		return nil
	}
	view := viewOf(accepted[0])
	return &view
}

// History returns the accepted rows other than the current one, newest first.
func History(rows []models.ChangeLog) []ChangeLogView {
	accepted := acceptedNewestFirst(rows)
	if len(accepted) <= 1 {
		return []ChangeLogView{}
	}
	out := make([]ChangeLogView, 0, len(accepted)-1)
	for _, row := range accepted[1:] {
		out = append(out, viewOf(row))
	}
	return out
}

type Location struct {
	SpaceID   uuid.UUID `json:"space_id"`
	SpaceName string    `json:"space_name"`
	AssetID   uuid.UUID `json:"asset_id"`
	AssetName string    `json:"asset_name"`
}

// SpecGroup is one distinct specification and every asset that carries it.
type SpecGroup struct {
	Specifications dbtypes.Specifications `json:"specifications"`
	Locations      []Location             `json:"locations"`
}

type DisciplineGroup struct {
	Discipline string      `json:"discipline"`
	Groups     []SpecGroup `json:"groups"`
}

// Rollup groups the property's assets by discipline and then by identical
// current specification. Identity is the key-sorted JSON form, so key order
// never splits a group. Assets without an accepted row are skipped.
func Rollup(prop *models.Property) []DisciplineGroup {
	if prop == nil {
		return []DisciplineGroup{}
	}
	properties.SortTree(prop)

	type bucket struct {
		order  []string
		groups map[string]*SpecGroup
	}
	buckets := map[string]*bucket{}

	for si := range prop.Spaces {
		space := &prop.Spaces[si]
		for ai := range space.Assets {
			asset := &space.Assets[ai]
			current := Current(asset.ChangeLogs)
			if current == nil {
				continue
			}
			discipline := asset.AssetType.DisciplineOr(DefaultDiscipline)
			b, ok := buckets[discipline]
			if !ok {
				b = &bucket{groups: map[string]*SpecGroup{}}
				buckets[discipline] = b
			}
			key := current.Specifications.Canonical()
			group, ok := b.groups[key]
			if !ok {
				group = &SpecGroup{Specifications: current.Specifications}
				b.groups[key] = group
				b.order = append(b.order, key)
			}
			group.Locations = append(group.Locations, Location{
				SpaceID:   space.ID,
				SpaceName: space.Name,
				AssetID:   asset.ID,
				AssetName: assetName(asset),
			})
		}
	}

	disciplines := make([]string, 0, len(buckets))
	for d := range buckets {
		disciplines = append(disciplines, d)
	}
	sort.Strings(disciplines)

	out := make([]DisciplineGroup, 0, len(disciplines))
	for _, d := range disciplines {
		b := buckets[d]
		dg := DisciplineGroup{Discipline: d, Groups: make([]SpecGroup, 0, len(b.order))}
		for _, key := range b.order {
			dg.Groups = append(dg.Groups, *b.groups[key])
		}
		out = append(out, dg)
	}
	return out
}

func assetName(asset *models.Asset) string {
	if asset.Description != nil && *asset.Description != "" {
		return *asset.Description
	}
	if asset.AssetType != nil {
		return asset.AssetType.Name
	}
	return ""
}
