package db

import (
	"time"
)

// User table. PasswordHash never leaves the service layer.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Active       bool      `gorm:"default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string { return "users" }

// Profile holds the public attributes shown on candidate cards.
type Profile struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"size:128;not null"`
	Age       int       `gorm:"not null"`
	Gender    string    `gorm:"size:32;not null"`
	Bio       string    `gorm:"type:text"`
	PhotoURL  string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }

// Like is a directed expression of interest.
//
// Composite PK: (FromID, ToID)
//   - At most one like per ordered pair; duplicates are rejected, not overwritten.
//
// Indexes:
//   - idx_likes_to_created(to_id, created_at DESC)
//     Serves "who liked me" lists with pagination.
type Like struct {
	FromID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	ToID      uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_likes_to_created,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_likes_to_created,priority:2,sort:desc"`
}

func (Like) TableName() string { return "likes" }

// Pass is a directed rejection. Passed users drop out of candidate lists.
type Pass struct {
	FromID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	ToID      uint64    `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Pass) TableName() string { return "passes" }

// Match is the undirected pairing created from a mutual like.
//
// The pair is stored normalized (UserLowID < UserHighID) under a unique index,
// so the store itself guarantees at most one match per unordered pair.
type Match struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	UserLowID  uint64    `gorm:"not null;uniqueIndex:idx_matches_pair,priority:1"`
	UserHighID uint64    `gorm:"not null;uniqueIndex:idx_matches_pair,priority:2;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`

	Messages []Message `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

func (Match) TableName() string { return "matches" }

// NewMatch returns a match for the unordered pair {a, b}.
func NewMatch(a, b uint64) Match {
	low, high := PairKey(a, b)
	return Match{UserLowID: low, UserHighID: high}
}

// PairKey normalizes an unordered user pair.
func PairKey(a, b uint64) (low, high uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// MemberIDs returns both members, low id first.
func (m Match) MemberIDs() []uint64 {
	return []uint64{m.UserLowID, m.UserHighID}
}

// HasMember reports whether userID is one of the two members.
func (m Match) HasMember(userID uint64) bool {
	return userID != 0 && (m.UserLowID == userID || m.UserHighID == userID)
}

// OtherMember returns the member that is not userID.
func (m Match) OtherMember(userID uint64) uint64 {
	if m.UserLowID == userID {
		return m.UserHighID
	}
	return m.UserLowID
}

// Message is a chat line scoped to a match, read back in creation order.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	MatchID   uint64    `gorm:"not null;index:idx_messages_match_created,priority:1"`
	SenderID  uint64    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_messages_match_created,priority:2"`
}

func (Message) TableName() string { return "messages" }

// AllModels lists every table in migration order.
func AllModels() []any {
	return []any{&User{}, &Profile{}, &Like{}, &Pass{}, &Match{}, &Message{}}
}
