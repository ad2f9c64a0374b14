package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchchat/internal/db"
)

// PassRepository stores directed passes.
type PassRepository struct {
	db *gorm.DB
}

func NewPassRepository(database *gorm.DB) *PassRepository {
	return &PassRepository{db: database}
}

// Create inserts a pass; created is false when the ordered pair already exists.
func (r *PassRepository) Create(ctx context.Context, fromID, toID uint64) (*db.Pass, bool, error) {
	pass := db.Pass{FromID: fromID, ToID: toID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&pass)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &pass, res.RowsAffected > 0, nil
}
