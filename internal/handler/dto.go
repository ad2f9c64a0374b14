package handler

import (
	"time"

	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/realtime"
	"github.com/oggyb/matchchat/internal/service/chat"
	"github.com/oggyb/matchchat/internal/service/match"
)

// region --- Requests ---

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Age      int    `json:"age" binding:"required"`
	Gender   string `json:"gender" binding:"required"`
	Bio      string `json:"bio"`
	PhotoURL string `json:"photo_url"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileInput struct {
	Name     *string `json:"name"`
	Age      *int    `json:"age"`
	Gender   *string `json:"gender"`
	Bio      *string `json:"bio"`
	PhotoURL *string `json:"photo_url"`
}

type PhotoUploadInput struct {
	FileName string `json:"file_name" binding:"required"`
	FileType string `json:"file_type" binding:"required"`
}

type PhotoReadInput struct {
	Key string `json:"key" binding:"required"`
}

type SendMessageInput struct {
	Content string `json:"content"`
}

// endregion

// region --- Responses ---

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type ProfileResponse struct {
	UserID   uint64 `json:"user_id"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Bio      string `json:"bio"`
	PhotoURL string `json:"photo_url,omitempty"`
}

func newProfileResponse(p *db.Profile) *ProfileResponse {
	if p == nil {
		return nil
	}
	return &ProfileResponse{
		UserID:   p.UserID,
		Name:     p.Name,
		Age:      p.Age,
		Gender:   p.Gender,
		Bio:      p.Bio,
		PhotoURL: p.PhotoURL,
	}
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID          uint64           `json:"id"`
	Email       string           `json:"email"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Profile     *ProfileResponse `json:"profile,omitempty"`
}

func newUserResponse(u *db.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		Profile:     newProfileResponse(u.Profile),
	}
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type MatchResponse struct {
	ID        uint64    `json:"id"`
	UserIDs   []uint64  `json:"user_ids"`
	CreatedAt time.Time `json:"created_at"`
}

func newMatchResponse(m db.Match) MatchResponse {
	return MatchResponse{ID: m.ID, UserIDs: m.MemberIDs(), CreatedAt: m.CreatedAt}
}

type LikeResponse struct {
	Matched bool           `json:"matched"`
	Match   *MatchResponse `json:"match,omitempty"`
}

func newLikeResponse(res match.LikeResult) LikeResponse {
	out := LikeResponse{Matched: res.Matched}
	if res.Match != nil {
		m := newMatchResponse(*res.Match)
		out.Match = &m
	}
	return out
}

type PassResponse struct {
	FromID    uint64    `json:"from_id"`
	ToID      uint64    `json:"to_id"`
	CreatedAt time.Time `json:"created_at"`
}

type LikeViewResponse struct {
	UserID    uint64           `json:"user_id"`
	Profile   *ProfileResponse `json:"profile,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func newLikeViewResponses(views []match.LikeView) []LikeViewResponse {
	out := make([]LikeViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, LikeViewResponse{
			UserID:    v.UserID,
			Profile:   newProfileResponse(v.Profile),
			CreatedAt: v.CreatedAt,
		})
	}
	return out
}

type MatchViewResponse struct {
	Match   MatchResponse    `json:"match"`
	Partner *ProfileResponse `json:"partner,omitempty"`
}

type ConversationResponse struct {
	Match       MatchResponse            `json:"match"`
	Partner     *ProfileResponse         `json:"partner,omitempty"`
	LastMessage *realtime.MessagePayload `json:"last_message,omitempty"`
}

func newConversationResponse(c chat.Conversation) ConversationResponse {
	out := ConversationResponse{
		Match:   newMatchResponse(c.Match),
		Partner: newProfileResponse(c.Partner),
	}
	if c.LastMessage != nil {
		p := realtime.NewMessagePayload(*c.LastMessage)
		out.LastMessage = &p
	}
	return out
}

// PageResponse is a cursor-paginated list.
type PageResponse[T any] struct {
	Data          []T     `json:"data"`
	NextPageToken *string `json:"next_page_token,omitempty"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// endregion
