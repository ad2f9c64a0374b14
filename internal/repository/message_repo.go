package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/db"
)

// MessageRepository is the message store, scoped by match.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListByMatch returns the match history in creation order.
func (r *MessageRepository) ListByMatch(ctx context.Context, matchID uint64) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// LastByMatch returns the most recent message of each match that has one.
func (r *MessageRepository) LastByMatch(ctx context.Context, matchIDs []uint64) (map[uint64]db.Message, error) {
	out := make(map[uint64]db.Message, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}

	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Table("messages m").
		Select("m.*").
		Where("m.match_id IN ?", matchIDs).
		Where("m.id = (SELECT MAX(m2.id) FROM messages m2 WHERE m2.match_id = m.match_id)").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.MatchID] = m
	}
	return out, nil
}

func (r *MessageRepository) CountByMatch(ctx context.Context, matchID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Message{}).Where("match_id = ?", matchID).Count(&count).Error
	return count, err
}
