package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"projectos/internal/auth"
	"projectos/internal/model"
	"projectos/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DTOs for Request validation
type MagicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt string    `json:"created_at"`
}

// Mailer delivers a login link to an address.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

// LogMailer writes login links to the log instead of sending mail. It is the default
// for local development.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) SendMagicLink(_ context.Context, email, link string) error {
	m.Log.WithFields(logrus.Fields{"email": email, "link": link}).Info("magic link issued")
	return nil
}

// UserService defines passwordless login for designers.
type UserService interface {
	RequestMagicLink(ctx context.Context, req MagicLinkRequest) error
	ConsumeMagicLink(ctx context.Context, token string) (*TokenResponse, error)
	GetMe(ctx context.Context, session *auth.Session) (*UserResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	txManager repository.TransactionManager
	sessions  *auth.SessionIssuer
	mailer    Mailer
	links     LinkBuilder
	linkTTL   time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewUserService returns a new instance of UserService
func NewUserService(
	repo repository.UserRepository,
	txManager repository.TransactionManager,
	sessions *auth.SessionIssuer,
	mailer Mailer,
	links LinkBuilder,
	linkTTL time.Duration,
	log logrus.FieldLogger,
) UserService {
	return &userService{
		repo:      repo,
		txManager: txManager,
		sessions:  sessions,
		mailer:    mailer,
		links:     links,
		linkTTL:   linkTTL,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// normalizeEmail lower-cases the bare address out of input such as "Ana <ANA@x.io>".
func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", validationError("Email is invalid.")
	}
	return strings.ToLower(addr.Address), nil
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// RequestMagicLink creates the account on first use and mails a single-use login link.
func (s *userService) RequestMagicLink(ctx context.Context, req MagicLinkRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}

	token, err := auth.NewToken()
	if err != nil {
		return storageError("generate login token", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, getErr := s.repo.GetOrCreateByEmail(txCtx, email)
		if getErr != nil {
			return storageError("get or create user", getErr)
		}
		link := model.MagicLink{
			TokenDigest: auth.Digest(token),
			UserID:      user.ID,
			Email:       email,
			ExpiresAt:   s.now().Add(s.linkTTL),
		}
		if createErr := s.repo.CreateMagicLink(txCtx, &link); createErr != nil {
			return storageError("store magic link", createErr)
		}
		return nil
	})
	if err != nil {
		return passThrough("request magic link", err)
	}

	if err := s.mailer.SendMagicLink(ctx, email, s.links.MagicLink(token)); err != nil {
		return storageError("send magic link", err)
	}
	return nil
}

// ConsumeMagicLink spends a login token and opens a session for its owner.
func (s *userService) ConsumeMagicLink(ctx context.Context, token string) (*TokenResponse, error) {
	if strings.TrimSpace(token) == "" {
		return nil, validationError("Missing token.")
	}

	var user *model.User
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		link, findErr := s.repo.FindMagicLink(txCtx, auth.Digest(token))
		if findErr != nil {
			return lookupError("find magic link", "This login link is invalid.", findErr)
		}

		ok, consumeErr := s.repo.ConsumeMagicLink(txCtx, link.ID, s.now())
		if consumeErr != nil {
			return storageError("consume magic link", consumeErr)
		}
		if !ok {
			return conflictError("This login link has expired or was already used.")
		}

		found, getErr := s.repo.GetByID(txCtx, link.UserID)
		if getErr != nil {
			return lookupError("load user", "This login link is invalid.", getErr)
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, passThrough("consume magic link", err)
	}

	signed, expiresAt, err := s.sessions.Issue(auth.Session{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, storageError("issue session", err)
	}

	s.log.WithField("user_id", user.ID.String()).Info("designer logged in")
	return &TokenResponse{
		Token:     signed,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		User:      *mapToResponse(user),
	}, nil
}

func (s *userService) GetMe(ctx context.Context, session *auth.Session) (*UserResponse, error) {
	if session == nil {
		return nil, unauthenticatedError()
	}
	user, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, lookupError("load user", "User not found.", err)
	}
	return mapToResponse(user), nil
}
