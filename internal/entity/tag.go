package entity

import "context"

// Tag mirrors one FUB-side tag. The remote set is the source of truth:
// each sync deactivates the whole mirror and reinserts what FUB
// currently reports.
type Tag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type TagRepositoryInterface interface {
	// ReplaceAll deactivates every mirrored tag and upserts the given
	// set as active, in one transaction.
	ReplaceAll(ctx context.Context, tags []Tag) error

	ListActive(ctx context.Context) ([]Tag, error)
}
