package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"bookshare/internal/models"
)

// SaveTriggerState upserts a trigger's run bookkeeping.
func (s *Store) SaveTriggerState(ctx context.Context, state *models.TriggerState) error {
	state.UpdatedAt = s.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(state).Error
	if err != nil {
		return fmt.Errorf("save trigger state %s: %w", state.Name, classify(err))
	}
	return nil
}

func (s *Store) TriggerState(ctx context.Context, name string) (*models.TriggerState, error) {
	var state models.TriggerState
	if err := s.db.WithContext(ctx).Where("name = ?", name).Take(&state).Error; err != nil {
		return nil, fmt.Errorf("trigger state %s: %w", name, classify(err))
	}
	return &state, nil
}
