package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"bookshare/internal/changefeed"
	"bookshare/internal/models"
)

// AddVolunteer adds v to the opportunity's volunteer set. Adding a uid that
// is already present is a no-op and reports false.
func (s *Store) AddVolunteer(ctx context.Context, opportunityID string, v models.Volunteer) (bool, error) {
	added := false
	err := s.Transaction(ctx, func(tx *Store) error {
		opps := tx.Opportunities().Preload("Volunteers")
		before, err := opps.Get(ctx, opportunityID)
		if err != nil {
			return err
		}

		v.OpportunityID = before.ID
		v.CreatedAt = tx.Now()
		res := tx.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&v)
		if res.Error != nil {
			return fmt.Errorf("add volunteer to %s: %w", opportunityID, classify(res.Error))
		}
		if res.RowsAffected == 0 {
			return nil
		}
		added = true

		after, err := opps.Get(ctx, opportunityID)
		if err != nil {
			return err
		}
		tx.record(tx.change(CollectionOpportunities, changefeed.OpUpdate, opportunityID, before, after))
		return nil
	})
	return added, err
}
