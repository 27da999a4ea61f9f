package fixtures

import (
	"context"
	"fmt"

	"github.com/lox/floatchat/internal/models"
)

// FloatStore is the subset of the store the fixture loader needs.
type FloatStore interface {
	UpsertFloat(ctx context.Context, f models.FloatRecord) error
	ListFloats(ctx context.Context) ([]models.FloatRecord, error)
}

// StoreProvider lists floats persisted in the database.
type StoreProvider struct {
	store FloatStore
}

func NewStoreProvider(store FloatStore) *StoreProvider {
	return &StoreProvider{store: store}
}

func (p *StoreProvider) ListFloats(ctx context.Context) ([]models.FloatRecord, error) {
	return p.store.ListFloats(ctx)
}

// Seed copies every float from src into the store.
func Seed(ctx context.Context, dst FloatStore, src Provider) (int, error) {
	floats, err := src.ListFloats(ctx)
	if err != nil {
		return 0, fmt.Errorf("list fixture floats: %w", err)
	}
	for _, f := range floats {
		if err := dst.UpsertFloat(ctx, f); err != nil {
			return 0, fmt.Errorf("upsert float %s: %w", f.ID, err)
		}
	}
	return len(floats), nil
}
