package templates

import (
	"context"
	"time"
)

// Repository stores templates and enforces the natural-key constraint.
type Repository interface {
	// Create fails with DUPLICATE_KEY on an id or natural-key clash.
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id string) (*Template, error)
	// List sorts by organ, then title.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Template, error)
	Update(ctx context.Context, id string, patch TemplatePatch, now time.Time) (*Template, error)
	Delete(ctx context.Context, id string) error
	// Upsert inserts t when its natural key is new. Otherwise only text and
	// updated_at of the existing template change. It reports whether a row
	// was inserted.
	Upsert(ctx context.Context, t *Template) (bool, error)
	Count(ctx context.Context) (int64, error)
}
