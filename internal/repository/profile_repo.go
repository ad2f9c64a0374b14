package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/utils/pagination"
)

// ProfileRepository reads and updates public profiles.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies the given column updates to the user's profile and returns
// the fresh row. Missing profiles surface as gorm.ErrRecordNotFound.
func (r *ProfileRepository) Update(ctx context.Context, userID uint64, updates map[string]any) (*db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&p).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&p, p.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MapByUserIDs loads profiles for ids keyed by user id.
func (r *ProfileRepository) MapByUserIDs(ctx context.Context, ids []uint64) (map[uint64]db.Profile, error) {
	out := make(map[uint64]db.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

// ListCandidates returns the profiles userID can still swipe on.
//
// Behavior:
//   - Excludes the requesting user.
//   - Excludes everyone the user already liked or passed.
//   - Excludes everyone the user is matched with.
//   - Ordered by user_id ASC so pages are deterministic.
//   - Cursor carries the last user_id of the previous page.
//
// Example:
//
//	repo.ListCandidates(ctx, 42, nil, 20)
func (r *ProfileRepository) ListCandidates(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]db.Profile, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("profiles pr").
		Select("pr.*").
		Where("pr.user_id <> ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM likes l WHERE l.from_id = ? AND l.to_id = pr.user_id)", userID).
		Where("NOT EXISTS (SELECT 1 FROM passes p WHERE p.from_id = ? AND p.to_id = pr.user_id)", userID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE (m.user_low_id = ? AND m.user_high_id = pr.user_id)
				   OR (m.user_high_id = ? AND m.user_low_id = pr.user_id)
			)`, userID, userID).
		Order("pr.user_id ASC").
		Limit(limit + 1)

	if cursor.ID > 0 {
		query = query.Where("pr.user_id > ?", cursor.ID)
	}

	var profiles []db.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(profiles) > limit {
		token, _ := pagination.Encode(pagination.Cursor{ID: profiles[limit-1].UserID})
		nextToken = &token
		profiles = profiles[:limit]
	}
	return profiles, nextToken, nil
}
