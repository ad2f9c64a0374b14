package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/utils/pagination"
)

// LikeRepository provides data access methods for the Like model.
// It encapsulates all queries related to directed likes between users.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Create inserts a like made by from -> to.
//
// Behavior:
//   - If the (from_id, to_id) pair does not exist → a new row is inserted, created = true.
//   - If it exists → nothing is written, created = false.
//   - The composite PK makes this decision on the store side, so two racing
//     requests for the same pair cannot both report created = true.
//
// Example:
//
//	repo.Create(ctx, 1, 2) // user 1 liked user 2
func (r *LikeRepository) Create(ctx context.Context, fromID, toID uint64) (*db.Like, bool, error) {
	like := db.Like{FromID: fromID, ToID: toID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &like, res.RowsAffected > 0, nil
}

// HasLiked checks whether from has liked to.
//
// Used for checking the reciprocal like in RecordLike.
//
// Example:
//
//	repo.HasLiked(ctx, 1, 2) // -> true if user 1 liked user 2
func (r *LikeRepository) HasLiked(ctx context.Context, fromID, toID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("from_id = ? AND to_id = ?", fromID, toID).
		Count(&count).Error
	return count > 0, err
}

// ListSent returns every like made by the user, newest first.
func (r *LikeRepository) ListSent(ctx context.Context, fromID uint64) ([]db.Like, error) {
	var likes []db.Like
	err := r.db.WithContext(ctx).
		Where("from_id = ?", fromID).
		Order("created_at DESC, to_id DESC").
		Find(&likes).Error
	return likes, err
}

// ListReceived returns the likes the given recipient received.
//
// Behavior:
//   - Only likes where to_id = X are returned.
//   - Excludes users that the recipient explicitly passed.
//   - Ordered by created_at DESC, from_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListReceived(ctx, 42, nil, 20) // first 20 people who liked user 42
func (r *LikeRepository) ListReceived(
	ctx context.Context,
	toID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("likes l").
		Select("l.*").
		Where("l.to_id = ?", toID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM passes p
				WHERE p.from_id = ?
				  AND p.to_id = l.from_id
			)`, toID).
		Order("l.created_at DESC, l.from_id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.from_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:          last.FromID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountReceived returns how many users liked the given recipient.
//
// Behavior:
//   - Same filter as ListReceived (passed users excluded).
//   - Used in conjunction with the Redis cache (DB is fallback).
func (r *LikeRepository) CountReceived(ctx context.Context, toID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.to_id = ?", toID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM passes p
				WHERE p.from_id = ?
				  AND p.to_id = l.from_id
			)`, toID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
