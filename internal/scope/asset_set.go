package scope

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// AssetSet is the set of asset ids a job lets its tradie write to.
type AssetSet map[uuid.UUID]struct{}

func NewAssetSet(ids ...uuid.UUID) AssetSet {
	set := make(AssetSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s AssetSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in a stable order.
func (s AssetSet) IDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (s AssetSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}
