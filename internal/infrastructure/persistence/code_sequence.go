package persistence

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCodeSequence hands out per-kind record numbers from a counter table.
// The increment takes a row lock that is held until the surrounding transaction
// ends, so numbers stay unique across processes.
type GormCodeSequence struct {
	db *gorm.DB
}

// NewGormCodeSequence creates a new GormCodeSequence
func NewGormCodeSequence(db *gorm.DB) *GormCodeSequence {
	return &GormCodeSequence{db: db}
}

// Next increments and returns the counter of a kind, creating it on first use
func (s *GormCodeSequence) Next(ctx context.Context, kind ledger.Kind) (int64, error) {
	db := s.db.WithContext(ctx)
	for range 2 {
		result := db.Model(&models.CodeSequenceModel{}).
			Where("kind = ?", string(kind)).
			UpdateColumn("last_value", gorm.Expr("last_value + 1"))
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected > 0 {
			var seq models.CodeSequenceModel
			if err := db.First(&seq, "kind = ?", string(kind)).Error; err != nil {
				return 0, err
			}
			return seq.LastValue, nil
		}

		// First number of this kind: create the counter and retry the increment
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CodeSequenceModel{Kind: string(kind)}).Error; err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("code sequence for %s could not be initialised", kind)
}

var _ ledger.CodeSequence = (*GormCodeSequence)(nil)
