package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/repository"
	"github.com/oggyb/matchchat/internal/storage"
)

const (
	MinPasswordLength = 6
	MinAge            = 18
)

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Age      int
	Gender   string
	Bio      string
	PhotoURL string
}

// UpdateProfileInput is a partial update; nil fields are left untouched.
type UpdateProfileInput struct {
	Name     *string
	Age      *int
	Gender   *string
	Bio      *string
	PhotoURL *string
}

// PhotoUpload is a presigned upload target plus the key to store on the profile.
type PhotoUpload struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
}

// Service handles registration, login and profile management.
type Service struct {
	appCtx      *app.AppContext
	userRepo    *repository.UserRepository
	profileRepo *repository.ProfileRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		userRepo:    repository.NewUserRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
	}
}

// Register creates a user together with its profile.
//
// Behavior:
//   - Email, password (min 6 chars), name and gender are required.
//   - Users under 18 are rejected with InvalidArgument.
//   - A taken email is a Conflict; the unique index catches concurrent signups.
//   - The password is stored as a bcrypt hash.
//
// Example:
//
//	svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "secret", Name: "Ann", Age: 30, Gender: "woman"})
func (s *Service) Register(ctx context.Context, in RegisterInput) (*db.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, svcErr.InvalidArgument(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	name := strings.TrimSpace(in.Name)
	gender := strings.TrimSpace(in.Gender)
	if name == "" || gender == "" {
		return nil, svcErr.InvalidArgument("name and gender are required")
	}
	if in.Age < MinAge {
		return nil, svcErr.InvalidArgument("you must be at least 18 years old to register")
	}

	taken, err := s.userRepo.EmailTaken(ctx, email)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if taken {
		return nil, svcErr.Conflict("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", svcErr.ErrInternal, err)
	}

	user := &db.User{Email: email, PasswordHash: string(hash), Active: true}
	profile := &db.Profile{
		Name:     name,
		Age:      in.Age,
		Gender:   gender,
		Bio:      strings.TrimSpace(in.Bio),
		PhotoURL: strings.TrimSpace(in.PhotoURL),
	}
	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("email already exists")
		}
		s.appCtx.Logger.Error("register failed", "email", email, "err", err)
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and issues a session token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *db.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, svcErr.InvalidArgument("email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, svcErr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return "", nil, svcErr.Map(err)
	}
	if !user.Active {
		return "", nil, svcErr.Unauthenticated("account is disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, svcErr.Unauthenticated("invalid email or password")
	}

	token, err := s.appCtx.Tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("%w: issue token: %v", svcErr.ErrInternal, err)
	}

	now := time.Now().UTC()
	if err := s.userRepo.TouchLogin(ctx, user.ID, now); err != nil {
		s.appCtx.Logger.Warn("touch login failed", "user_id", user.ID, "err", err)
	} else {
		user.LastLoginAt = &now
	}

	return token, user, nil
}

func (s *Service) GetProfile(ctx context.Context, userID uint64) (*db.Profile, error) {
	p, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return p, nil
}

// UpdateProfile applies a partial update to the caller's own profile.
// Age stays subject to the 18+ rule.
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, in UpdateProfileInput) (*db.Profile, error) {
	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, svcErr.InvalidArgument("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Age != nil {
		if *in.Age < MinAge {
			return nil, svcErr.InvalidArgument("age must be at least 18")
		}
		updates["age"] = *in.Age
	}
	if in.Gender != nil {
		gender := strings.TrimSpace(*in.Gender)
		if gender == "" {
			return nil, svcErr.InvalidArgument("gender cannot be empty")
		}
		updates["gender"] = gender
	}
	if in.Bio != nil {
		updates["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.PhotoURL != nil {
		updates["photo_url"] = strings.TrimSpace(*in.PhotoURL)
	}

	p, err := s.profileRepo.Update(ctx, userID, updates)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return p, nil
}

// PhotoUploadURL presigns an upload for a new profile photo of userID.
// Only image content types are accepted.
func (s *Service) PhotoUploadURL(ctx context.Context, userID uint64, fileName, fileType string) (*PhotoUpload, error) {
	if s.appCtx.Photos == nil {
		return nil, svcErr.Unavailable("photo storage is not configured")
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, svcErr.InvalidArgument("file name is required")
	}
	if !strings.HasPrefix(fileType, "image/") {
		return nil, svcErr.InvalidArgument("file type must be an image")
	}

	key := s.appCtx.Photos.PhotoKey(userID, fileName)
	url, err := s.appCtx.Photos.UploadURL(ctx, key, fileType)
	if err != nil {
		s.appCtx.Logger.Error("presign upload failed", "user_id", userID, "err", err)
		return nil, svcErr.Unavailable("could not create upload url")
	}
	return &PhotoUpload{UploadURL: url, Key: key}, nil
}

// PhotoReadURL presigns a read of a stored profile photo.
func (s *Service) PhotoReadURL(ctx context.Context, key string) (string, error) {
	if s.appCtx.Photos == nil {
		return "", svcErr.Unavailable("photo storage is not configured")
	}
	if !strings.HasPrefix(key, storage.PhotoPrefix) || strings.Contains(key, "..") {
		return "", svcErr.InvalidArgument("invalid photo key")
	}

	url, err := s.appCtx.Photos.ReadURL(ctx, key)
	if err != nil {
		s.appCtx.Logger.Error("presign read failed", "key", key, "err", err)
		return "", svcErr.Unavailable("could not create read url")
	}
	return url, nil
}

var validate = validator.New()

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", svcErr.InvalidArgument("email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", svcErr.InvalidArgument("email is invalid")
	}
	return email, nil
}
