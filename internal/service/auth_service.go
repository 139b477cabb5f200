package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/repository"
)

// maxPasswordBytes is the bcrypt input limit; longer passwords are truncated.
const maxPasswordBytes = 72

// AuthService handles sign-up, sign-in, sign-out and session lookup.
// Bearer tokens are fernet-encrypted session IDs that expire with the session TTL.
type AuthService struct {
	userRepo *repository.UserRepository
	keys     []*fernet.Key
	ttl      time.Duration
	cost     int
	logger   logrus.FieldLogger

	mu     sync.Mutex
	subs   []sessionSubscriber
	nextID int

	sweeper *cron.Cron
}

type sessionSubscriber struct {
	id int
	fn func(model.SessionEvent)
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithPasswordCost sets the bcrypt cost.
func WithPasswordCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.cost = cost
	}
}

// NewAuthService creates a new AuthService. key signs session tokens, ttl is
// the lifetime of a session.
func NewAuthService(
	userRepo *repository.UserRepository,
	key *fernet.Key,
	ttl time.Duration,
	logger logrus.FieldLogger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		userRepo: userRepo,
		keys:     []*fernet.Key{key},
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadSessionKey decodes a base64 fernet key. An empty value generates a
// fresh key, which invalidates every token issued by a previous process.
func LoadSessionKey(encoded string) (*fernet.Key, bool, error) {
	if encoded == "" {
		var k fernet.Key
		if err := k.Generate(); err != nil {
			return nil, false, fmt.Errorf("failed to generate session key: %w", err)
		}
		return &k, true, nil
	}
	k, err := fernet.DecodeKey(encoded)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode session key: %w", err)
	}
	return k, false, nil
}

// SignUp registers a new user. Emails are compared case-insensitively.
// Returns ErrEmailTaken when the email is already registered.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordBytes(password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
	}
	if err := s.userRepo.InsertUser(ctx, &user); err != nil {
		return model.User{}, err
	}

	s.logger.WithField("user_id", user.ID).Info("User signed up")
	return user, nil
}

// SignInWithPassword verifies the credentials and opens a new session.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (model.SessionToken, error) {
	user, err := s.userRepo.GetUserByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return model.SessionToken{}, apperrors.ErrInvalidCredentials
		}
		return model.SessionToken{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordBytes(password)); err != nil {
		return model.SessionToken{}, apperrors.ErrInvalidCredentials
	}

	session := model.Session{
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
	}
	session.ExpiresAt = session.CreatedAt.Add(s.ttl)
	if err := s.userRepo.InsertSession(ctx, &session); err != nil {
		return model.SessionToken{}, err
	}

	token, err := fernet.EncryptAndSign([]byte(session.ID), s.keys[0])
	if err != nil {
		return model.SessionToken{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User signed in")
	s.publish(model.SessionEvent{UserID: user.ID, Session: &session})

	return model.SessionToken{
		Token:     string(token),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// CurrentSession resolves a bearer token into its session.
// Malformed, expired and revoked tokens return ErrSessionExpired. An expired
// session found this way is deleted.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	sessionID := fernet.VerifyAndDecrypt([]byte(token), s.ttl, s.keys)
	if sessionID == nil {
		return nil, apperrors.ErrSessionExpired
	}

	session, err := s.userRepo.GetSession(string(sessionID))
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionExpired
		}
		return nil, err
	}

	if !time.Now().Before(session.ExpiresAt) {
		if err := s.endSession(ctx, session); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
			s.logger.WithError(err).WithField("user_id", session.UserID).Warn("Failed to remove expired session")
		}
		return nil, apperrors.ErrSessionExpired
	}
	return &session, nil
}

// SignOut ends the session behind token. When it was the user's last live
// session, subscribers are told the user no longer has one.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	session, err := s.CurrentSession(ctx, token)
	if err != nil {
		return err
	}

	if err := s.endSession(ctx, *session); err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return apperrors.ErrSessionExpired
		}
		return err
	}

	s.logger.WithField("user_id", session.UserID).Info("User signed out")
	return nil
}

// PurgeExpiredSessions deletes every expired session and tells subscribers
// about each user left without a live session.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) error {
	userIDs, err := s.userRepo.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if err := s.publishIfSignedOut(userID); err != nil {
			return err
		}
	}

	if len(userIDs) > 0 {
		s.logger.WithField("users", len(userIDs)).Debug("Expired sessions purged")
	}
	return nil
}

// StartSweeper runs PurgeExpiredSessions on the given cron schedule until
// Stop is called.
func (s *AuthService) StartSweeper(ctx context.Context, schedule string) error {
	cronLogger := cron.PrintfLogger(s.logger)
	job := cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).
		Then(cron.FuncJob(func() {
			if err := s.PurgeExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Error("Session sweep failed")
			}
		}))

	c := cron.New(cron.WithLogger(cronLogger))
	if _, err := c.AddJob(schedule, job); err != nil {
		return fmt.Errorf("invalid session sweep schedule %q: %w", schedule, err)
	}
	s.sweeper = c
	c.Start()

	s.logger.WithField("every", schedule).Info("Session sweeper started")
	return nil
}

// Stop unschedules the sweeper and waits for a running sweep to return.
func (s *AuthService) Stop() {
	if s.sweeper != nil {
		<-s.sweeper.Stop().Done()
	}
}

// endSession deletes one session and publishes the sign-out when it was the
// user's last live one.
func (s *AuthService) endSession(ctx context.Context, session model.Session) error {
	if err := s.userRepo.DeleteSession(ctx, session.ID); err != nil {
		return err
	}
	return s.publishIfSignedOut(session.UserID)
}

func (s *AuthService) publishIfSignedOut(userID string) error {
	remaining, err := s.userRepo.CountLiveSessions(userID, time.Now())
	if err != nil {
		return err
	}
	if remaining == 0 {
		s.publish(model.SessionEvent{UserID: userID})
	}
	return nil
}

// OnSessionChange registers fn for every session change. Events are
// delivered synchronously, in subscription order. The returned function
// removes the subscription.
func (s *AuthService) OnSessionChange(fn func(model.SessionEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, sessionSubscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *AuthService) publish(ev model.SessionEvent) {
	s.mu.Lock()
	subs := make([]sessionSubscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func passwordBytes(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
