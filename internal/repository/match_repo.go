package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchchat/internal/db"
)

// MatchRepository stores undirected matches.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateForPair materializes the match for the unordered pair {a, b}.
//
// Behavior:
//   - Inserts against the unique (user_low_id, user_high_id) index with
//     ON CONFLICT DO NOTHING, then reads the row back by pair key.
//   - created reports whether this call inserted the row. A caller that lost a
//     race still gets the existing match with created = false.
func (r *MatchRepository) CreateForPair(ctx context.Context, a, b uint64) (*db.Match, bool, error) {
	m := db.NewMatch(a, b)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_low_id"}, {Name: "user_high_id"}},
			DoNothing: true,
		}).
		Create(&m)
	if res.Error != nil {
		return nil, false, res.Error
	}

	existing, err := r.FindByPair(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	return existing, res.RowsAffected > 0, nil
}

func (r *MatchRepository) FindByID(ctx context.Context, id uint64) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	low, high := db.PairKey(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", low, high).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns every match userID belongs to, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// Delete removes the match, its messages and the two likes that formed it
// in one transaction. deleted is false when no such match existed.
// Without the likes a repeated like cannot complete a removed match.
func (r *MatchRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m db.Match
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("match_id = ?", id).Delete(&db.Message{}).Error; err != nil {
			return err
		}
		err := tx.
			Where("(from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)",
				m.UserLowID, m.UserHighID, m.UserHighID, m.UserLowID).
			Delete(&db.Like{}).Error
		if err != nil {
			return err
		}
		res := tx.Delete(&db.Match{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
