package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/repository"
)

// MaxContentLength caps a single message, in runes.
const MaxContentLength = 2000

// Conversation is one match seen from a member, with its latest message.
type Conversation struct {
	Match       db.Match    `json:"match"`
	Partner     *db.Profile `json:"partner,omitempty"`
	LastMessage *db.Message `json:"last_message,omitempty"`
}

// Service persists and reads chat messages scoped to matches.
type Service struct {
	appCtx      *app.AppContext
	matchRepo   *repository.MatchRepository
	messageRepo *repository.MessageRepository
	profileRepo *repository.ProfileRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		messageRepo: repository.NewMessageRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
	}
}

// Membership loads the match and checks that userID belongs to it.
//
// Behavior:
//   - NotFound when the match does not exist.
//   - Forbidden when userID is not one of the two members.
func (s *Service) Membership(ctx context.Context, userID, matchID uint64) (*db.Match, error) {
	m, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !m.HasMember(userID) {
		return nil, svcErr.Forbidden("not a member of this match")
	}
	return m, nil
}

// Send persists a message from senderID into the match.
//
// Behavior:
//   - Membership is checked against the store on every call.
//   - Content is trimmed; empty or oversized content is InvalidArgument.
//
// Example:
//
//	msg, err := svc.Send(ctx, 1, 10, "hi")
func (s *Service) Send(ctx context.Context, senderID, matchID uint64, content string) (*db.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, svcErr.InvalidArgument("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, svcErr.InvalidArgument("message content is too long")
	}

	if _, err := s.Membership(ctx, senderID, matchID); err != nil {
		return nil, err
	}

	msg := &db.Message{MatchID: matchID, SenderID: senderID, Content: content}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		s.appCtx.Logger.Error("persist message failed", "match_id", matchID, "sender", senderID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Debug("message stored", "match_id", matchID, "message_id", msg.ID)
	return msg, nil
}

// History returns every message of the match in creation order.
func (s *Service) History(ctx context.Context, userID, matchID uint64) ([]db.Message, error) {
	if _, err := s.Membership(ctx, userID, matchID); err != nil {
		return nil, err
	}

	msgs, err := s.messageRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return msgs, nil
}

// Conversations lists the user's matches, newest first, each with the
// partner profile and the last message if any.
func (s *Service) Conversations(ctx context.Context, userID uint64) ([]Conversation, error) {
	matches, err := s.matchRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	matchIDs := make([]uint64, 0, len(matches))
	partnerIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		matchIDs = append(matchIDs, m.ID)
		partnerIDs = append(partnerIDs, m.OtherMember(userID))
	}

	last, err := s.messageRepo.LastByMatch(ctx, matchIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	profiles, err := s.profileRepo.MapByUserIDs(ctx, partnerIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := make([]Conversation, 0, len(matches))
	for _, m := range matches {
		c := Conversation{Match: m}
		if p, ok := profiles[m.OtherMember(userID)]; ok {
			c.Partner = &p
		}
		if msg, ok := last[m.ID]; ok {
			c.LastMessage = &msg
		}
		out = append(out, c)
	}
	return out, nil
}
