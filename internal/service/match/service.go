package match

import (
	"context"
	"errors"
	"time"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/repository"
	"github.com/oggyb/matchchat/internal/utils/pagination"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LikeResult is the outcome of RecordLike. Match is set only when Matched.
type LikeResult struct {
	Matched bool      `json:"matched"`
	Match   *db.Match `json:"match,omitempty"`
}

// LikeView pairs a like with the profile on the other side of it.
type LikeView struct {
	UserID    uint64      `json:"user_id"`
	Profile   *db.Profile `json:"profile,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// MatchView is a match as seen by one of its members.
type MatchView struct {
	Match   db.Match    `json:"match"`
	Partner *db.Profile `json:"partner,omitempty"`
}

// Service is the match engine: likes, passes, candidate discovery and matches.
// It contains the business logic on top of repository and cache layers.
type Service struct {
	appCtx      *app.AppContext
	userRepo    *repository.UserRepository
	profileRepo *repository.ProfileRepository
	likeRepo    *repository.LikeRepository
	passRepo    *repository.PassRepository
	matchRepo   *repository.MatchRepository
}

// NewService creates a match engine with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via the like, pass, match, user and profile repositories)
//   - RedisCache for the received-likes counter
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		userRepo:    repository.NewUserRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		likeRepo:    repository.NewLikeRepository(appCtx.DB),
		passRepo:    repository.NewPassRepository(appCtx.DB),
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
	}
}

// RecordLike stores a like from -> to and forms a match when it is mutual.
//
// Behavior:
//   - Liking yourself is rejected with InvalidArgument.
//   - Both users must exist, otherwise NotFound.
//   - A second like for the same ordered pair is a Conflict. Before returning
//     it, a mutual pair still missing its match gets one, so retrying a like
//     whose match step failed completes the match.
//   - The like is committed before the reciprocal check, so of two concurrent
//     reciprocal likes at least one sees the other.
//   - Once the like is committed the match step runs to completion even if
//     ctx is cancelled.
//   - The match insert is idempotent per pair; whoever loses the insert race
//     reads back the winner's row and still reports Matched = true.
//   - Drops the cached received-likes counter of the recipient.
//
// Example:
//
//	svc.RecordLike(ctx, 1, 2) // {Matched: false}
//	svc.RecordLike(ctx, 2, 1) // {Matched: true, Match: {1, 2}}
func (s *Service) RecordLike(ctx context.Context, fromID, toID uint64) (LikeResult, error) {
	s.appCtx.Logger.Debug("RecordLike called", "from", fromID, "to", toID)

	if fromID == toID {
		return LikeResult{}, svcErr.InvalidArgument("cannot like yourself")
	}
	if err := s.ensureUsers(ctx, fromID, toID); err != nil {
		return LikeResult{}, err
	}

	_, created, err := s.likeRepo.Create(ctx, fromID, toID)
	if err != nil {
		s.appCtx.Logger.Error("create like failed", "from", fromID, "to", toID, "err", err)
		return LikeResult{}, svcErr.Map(err)
	}

	ctx = context.WithoutCancel(ctx)
	if !created {
		if _, err := s.completeMatch(ctx, fromID, toID); err != nil {
			return LikeResult{}, err
		}
		return LikeResult{}, svcErr.Conflict("user already liked")
	}

	s.invalidateLikeCount(ctx, toID)
	return s.completeMatch(ctx, fromID, toID)
}

// completeMatch creates the match for {fromID, toID} when toID liked fromID back.
func (s *Service) completeMatch(ctx context.Context, fromID, toID uint64) (LikeResult, error) {
	reciprocal, err := s.likeRepo.HasLiked(ctx, toID, fromID)
	if err != nil {
		return LikeResult{}, svcErr.Map(err)
	}
	if !reciprocal {
		return LikeResult{Matched: false}, nil
	}

	m, inserted, err := s.matchRepo.CreateForPair(ctx, fromID, toID)
	if err != nil {
		s.appCtx.Logger.Error("create match failed", "a", fromID, "b", toID, "err", err)
		return LikeResult{}, svcErr.Map(err)
	}
	if inserted {
		s.appCtx.Logger.Info("match formed", "match_id", m.ID, "low", m.UserLowID, "high", m.UserHighID)
	}
	return LikeResult{Matched: true, Match: m}, nil
}

// RecordPass stores a pass from -> to. Same preconditions as RecordLike,
// without any matching side effect.
func (s *Service) RecordPass(ctx context.Context, fromID, toID uint64) (*db.Pass, error) {
	s.appCtx.Logger.Debug("RecordPass called", "from", fromID, "to", toID)

	if fromID == toID {
		return nil, svcErr.InvalidArgument("cannot pass yourself")
	}
	if err := s.ensureUsers(ctx, fromID, toID); err != nil {
		return nil, err
	}

	pass, created, err := s.passRepo.Create(ctx, fromID, toID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !created {
		return nil, svcErr.Conflict("user already passed")
	}

	// a pass hides the passed user from the passer's received likes
	s.invalidateLikeCount(ctx, fromID)
	return pass, nil
}

// ListCandidates returns profiles the user has not liked, passed or matched yet.
//
// Behavior:
//   - Ordered by user id ascending.
//   - limit is clamped to [1, 100]; 0 means the default page of 20.
//   - nextToken is nil on the last page.
//
// Example:
//
//	profiles, next, err := svc.ListCandidates(ctx, 42, nil, 20)
func (s *Service) ListCandidates(ctx context.Context, userID uint64, pageToken *string, limit int) ([]db.Profile, *string, error) {
	limit = pagination.ClampLimit(limit, defaultPageSize, maxPageSize)

	profiles, next, err := s.profileRepo.ListCandidates(ctx, userID, pageToken, limit)
	if err != nil {
		return nil, nil, mapPageErr(err)
	}

	s.appCtx.Logger.Debug("ListCandidates result", "user", userID, "count", len(profiles), "has_next", next != nil)
	return profiles, next, nil
}

// Unmatch deletes the match, its messages and the likes between its members.
//
// Behavior:
//   - NotFound when the match does not exist.
//   - Forbidden when the requester is not one of its members.
//   - Both members may like each other again afterwards.
func (s *Service) Unmatch(ctx context.Context, matchID, requesterID uint64) error {
	m, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return svcErr.Map(err)
	}
	if !m.HasMember(requesterID) {
		return svcErr.Forbidden("not a member of this match")
	}

	deleted, err := s.matchRepo.Delete(ctx, matchID)
	if err != nil {
		s.appCtx.Logger.Error("delete match failed", "match_id", matchID, "err", err)
		return svcErr.Map(err)
	}
	if !deleted {
		// lost a race against the other member's unmatch
		return svcErr.NotFound("match not found")
	}

	for _, id := range m.MemberIDs() {
		s.invalidateLikeCount(ctx, id)
	}
	s.appCtx.Logger.Info("match removed", "match_id", matchID, "by", requesterID)
	return nil
}

// LikesSent returns the profiles the user liked, newest first.
func (s *Service) LikesSent(ctx context.Context, userID uint64) ([]LikeView, error) {
	likes, err := s.likeRepo.ListSent(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids := make([]uint64, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.ToID)
	}
	profiles, err := s.profileRepo.MapByUserIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := make([]LikeView, 0, len(likes))
	for _, l := range likes {
		out = append(out, likeView(l.ToID, l.CreatedAt, profiles))
	}
	return out, nil
}

// LikesReceived returns the users who liked userID.
//
// Behavior:
//   - Excludes users that userID explicitly passed.
//   - Newest first, cursor paginated.
//
// Example:
//
//	svc.LikesReceived(ctx, 42, nil, 20)
func (s *Service) LikesReceived(ctx context.Context, userID uint64, pageToken *string, limit int) ([]LikeView, *string, error) {
	s.appCtx.Logger.Debug("LikesReceived called", "user", userID, "token", pageToken != nil)

	limit = pagination.ClampLimit(limit, defaultPageSize, maxPageSize)
	likes, next, err := s.likeRepo.ListReceived(ctx, userID, pageToken, limit)
	if err != nil {
		return nil, nil, mapPageErr(err)
	}

	ids := make([]uint64, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.FromID)
	}
	profiles, err := s.profileRepo.MapByUserIDs(ctx, ids)
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}

	out := make([]LikeView, 0, len(likes))
	for _, l := range likes {
		out = append(out, likeView(l.FromID, l.CreatedAt, profiles))
	}
	return out, next, nil
}

// CountLikesReceived returns how many users liked userID.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:received:count:userID).
//  2. On a miss or a Redis error, falls back to the DB.
//  3. On DB fetch, updates Redis with a 1h TTL unless the counter was
//     invalidated while the DB count ran.
func (s *Service) CountLikesReceived(ctx context.Context, userID uint64) (int64, error) {
	count, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Warn("like count cache read failed", "user", userID, "err", err)
	}
	if ok {
		return count, nil
	}

	version, verErr := s.appCtx.RedisCache.LikeCountVersion(ctx, userID)

	count, err = s.likeRepo.CountReceived(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if verErr != nil {
		return count, nil
	}

	stored, err := s.appCtx.RedisCache.SetLikeCountIfVersion(ctx, userID, count, version)
	if err != nil {
		s.appCtx.Logger.Warn("like count cache write failed", "user", userID, "err", err)
	} else if !stored {
		s.appCtx.Logger.Debug("like count changed during fill, not cached", "user", userID)
	}
	return count, nil
}

// ListMatches returns the user's matches with the partner's profile, newest first.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]MatchView, error) {
	matches, err := s.matchRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.OtherMember(userID))
	}
	profiles, err := s.profileRepo.MapByUserIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		view := MatchView{Match: m}
		if p, ok := profiles[m.OtherMember(userID)]; ok {
			view.Partner = &p
		}
		out = append(out, view)
	}
	return out, nil
}

// ensureUsers returns NotFound unless both ids resolve to users.
func (s *Service) ensureUsers(ctx context.Context, a, b uint64) error {
	n, err := s.userRepo.CountExisting(ctx, a, b)
	if err != nil {
		return svcErr.Map(err)
	}
	if n != 2 {
		return svcErr.NotFound("user not found")
	}
	return nil
}

func (s *Service) invalidateLikeCount(ctx context.Context, userID uint64) {
	if err := s.appCtx.RedisCache.InvalidateLikeCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("like count cache invalidation failed", "user", userID, "err", err)
	}
}

func likeView(userID uint64, at time.Time, profiles map[uint64]db.Profile) LikeView {
	v := LikeView{UserID: userID, CreatedAt: at}
	if p, ok := profiles[userID]; ok {
		v.Profile = &p
	}
	return v
}

func mapPageErr(err error) error {
	if errors.Is(err, pagination.ErrInvalidToken) {
		return svcErr.InvalidArgument("invalid page token")
	}
	return svcErr.Map(err)
}
