package ingest

import "context"

// DedupGate decides whether a catalog entry is already stored.
type DedupGate struct {
	index ItemIndex
}

func NewDedupGate(index ItemIndex) *DedupGate {
	return &DedupGate{index: index}
}

// Exists reports whether hashName is stored for gameID. A storage failure
// is returned as is and must not be read as "not present".
func (g *DedupGate) Exists(ctx context.Context, gameID int, hashName string) (bool, error) {
	return g.index.ItemExists(ctx, gameID, hashName)
}
