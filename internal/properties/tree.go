package properties

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/housebook/housebook-backend/pkg/db/models"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
)

// PropertyTree is the nested read of one property.
type PropertyTree struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Address        *string             `json:"address,omitempty"`
	Description    *string             `json:"description,omitempty"`
	TotalFloorArea decimal.NullDecimal `json:"total_floor_area"`
	BlockSize      decimal.NullDecimal `json:"block_size"`
	ImageURL       string              `json:"image_url,omitempty"`
	Spaces         []SpaceNode         `json:"spaces"`
}

type SpaceNode struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Type   *string     `json:"type,omitempty"`
	Assets []AssetNode `json:"assets"`
}

// AssetNode carries Editable for display only. Writes are re-checked server side.
type AssetNode struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	AssetType   *AssetTypeDTO   `json:"asset_type,omitempty"`
	Editable    bool            `json:"editable"`
	ChangeLogs  []ChangeLogNode `json:"change_logs"`
}

type AssetTypeDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Discipline *string   `json:"discipline,omitempty"`
}

type ChangeLogNode struct {
	ID                uuid.UUID              `json:"id"`
	Specifications    dbtypes.Specifications `json:"specifications"`
	ChangeDescription string                 `json:"change_description"`
	Status            string                 `json:"status"`
	ChangedByUserID   *uuid.UUID             `json:"changed_by_user_id,omitempty"`
	Author            string                 `json:"author"`
	CreatedAt         time.Time              `json:"created_at"`
}

// BuildTree converts a loaded property into its API shape. editable may be
// nil, in which case no asset is marked editable.
func BuildTree(prop *models.Property, editable func(uuid.UUID) bool) *PropertyTree {
	if prop == nil {
		return nil
	}
	SortTree(prop)
	tree := &PropertyTree{
		ID:             prop.ID,
		Name:           prop.Name,
		Address:        prop.Address,
		Description:    prop.Description,
		TotalFloorArea: prop.TotalFloorArea,
		BlockSize:      prop.BlockSize,
		Spaces:         make([]SpaceNode, 0, len(prop.Spaces)),
	}
	for _, space := range prop.Spaces {
		node := SpaceNode{
			ID:     space.ID,
			Name:   space.Name,
			Type:   space.Type,
			Assets: make([]AssetNode, 0, len(space.Assets)),
		}
		for _, asset := range space.Assets {
			a := AssetNode{
				ID:          asset.ID,
				Description: assetLabel(&asset),
				AssetType:   assetTypeDTO(asset.AssetType),
				Editable:    editable != nil && editable(asset.ID),
				ChangeLogs:  make([]ChangeLogNode, 0, len(asset.ChangeLogs)),
			}
			for i := range asset.ChangeLogs {
				a.ChangeLogs = append(a.ChangeLogs, changeLogNode(&asset.ChangeLogs[i]))
			}
			node.Assets = append(node.Assets, a)
		}
		tree.Spaces = append(tree.Spaces, node)
	}
	return tree
}

// SortTree orders spaces and assets by name and change logs newest first,
// so every reader walks the tree in the same order.
func SortTree(prop *models.Property) {
	sort.SliceStable(prop.Spaces, func(i, j int) bool {
		a, b := prop.Spaces[i], prop.Spaces[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.String() < b.ID.String()
	})
	for si := range prop.Spaces {
		assets := prop.Spaces[si].Assets
		sort.SliceStable(assets, func(i, j int) bool {
			a, b := assetLabel(&assets[i]), assetLabel(&assets[j])
			if a != b {
				return a < b
			}
			return assets[i].ID.String() < assets[j].ID.String()
		})
		for ai := range assets {
			logs := assets[ai].ChangeLogs
			sort.SliceStable(logs, func(i, j int) bool {
				if !logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
					return logs[i].CreatedAt.After(logs[j].CreatedAt)
				}
				return logs[i].ID.String() > logs[j].ID.String()
			})
		}
	}
}

func assetLabel(asset *models.Asset) string {
	if asset.Description != nil && strings.TrimSpace(*asset.Description) != "" {
		return strings.TrimSpace(*asset.Description)
	}
	if asset.AssetType != nil {
		return asset.AssetType.Name
	}
	return ""
}

func assetTypeDTO(at *models.AssetType) *AssetTypeDTO {
	if at == nil {
		return nil
	}
	return &AssetTypeDTO{ID: at.ID, Name: at.Name, Discipline: at.Discipline}
}

func changeLogNode(row *models.ChangeLog) ChangeLogNode {
	return ChangeLogNode{
		ID:                row.ID,
		Specifications:    row.Specifications,
		ChangeDescription: row.ChangeDescription,
		Status:            row.Status.API(),
		ChangedByUserID:   row.ChangedByUserID,
		Author:            row.AuthorName(),
		CreatedAt:         row.CreatedAt,
	}
}
