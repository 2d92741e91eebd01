package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("session invalid or expired")
)

type Service interface {
	Register(ctx context.Context, email, password string) (*User, error)
	Login(ctx context.Context, email, password, deviceInfo string) (*User, *TokenPair, error)
	// Refresh обменивает refresh-токен вида <session_id>.<random> на новую
	// пару токенов. Старый refresh-токен после обмена перестаёт действовать.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	// VerifyAccess проверяет access-токен и существование пользователя.
	VerifyAccess(ctx context.Context, accessToken string) (uuid.UUID, error)
}

type service struct {
	repo       Repository
	tokens     *TokenManager
	refreshTTL time.Duration
}

func NewService(repo Repository, tokens *TokenManager, refreshTTL time.Duration) Service {
	return &service{repo: repo, tokens: tokens, refreshTTL: refreshTTL}
}

func (s *service) Register(ctx context.Context, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}

	u := &User{Email: email, PasswordHash: string(hash)}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Msg("service: user registered")
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password, deviceInfo string) (*User, *TokenPair, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Не раскрываем, существует ли email.
			return nil, nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to fetch user by email")
		return nil, nil, fmt.Errorf("service: failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session := &Session{
		UserID:     u.ID,
		DeviceInfo: deviceInfo,
		ExpiresAt:  time.Now().UTC().Add(s.refreshTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to create session")
		return nil, nil, fmt.Errorf("service: failed to create session: %w", err)
	}

	refreshPlain, err := s.sealRefreshToken(ctx, session)
	if err != nil {
		return nil, nil, err
	}

	accessToken, err := s.tokens.Issue(u.ID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to issue access token")
		return nil, nil, fmt.Errorf("service: failed to issue access token: %w", err)
	}

	return u, &TokenPair{AccessToken: accessToken, RefreshToken: refreshPlain}, nil
}

// sealRefreshToken генерирует случайную часть токена, сохраняет её bcrypt-хэш
// и возвращает токен в открытом виде. Хэшируется только случайная часть:
// id сессии и так служит ключом поиска, а вход bcrypt ограничен 72 байтами.
func (s *service) sealRefreshToken(ctx context.Context, session *Session) (string, error) {
	var random [32]byte
	if _, err := rand.Read(random[:]); err != nil {
		return "", fmt.Errorf("service: failed to generate refresh token: %w", err)
	}

	secret := hex.EncodeToString(random[:])
	secretHash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("service: failed to hash refresh token: %w", err)
	}

	if err := s.repo.UpdateSessionTokenHash(ctx, session.ID, string(secretHash)); err != nil {
		return "", fmt.Errorf("service: failed to store refresh token hash: %w", err)
	}

	return session.ID.String() + "." + secret, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	session, secret, err := s.lookupSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(session.TokenHash), []byte(secret)); err != nil {
		return nil, ErrInvalidSession
	}

	// Ротация: в сессии сохраняется хэш новой случайной части,
	// предъявленный токен больше не примется.
	refreshPlain, err := s.sealRefreshToken(ctx, session)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.Issue(session.UserID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", session.UserID).Msg("service: failed to issue access token on refresh")
		return nil, fmt.Errorf("service: failed to issue access token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshPlain}, nil
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	sessionID, _, ok := splitRefreshToken(refreshToken)
	if !ok {
		// Невалидный токен при выходе - не ошибка, сессии всё равно нет.
		return nil
	}

	if err := s.repo.RevokeSession(ctx, sessionID); err != nil {
		log.Error().Err(err).Stringer("session_id", sessionID).Msg("service: failed to revoke session")
		return fmt.Errorf("service: failed to revoke session: %w", err)
	}

	return nil
}

func (s *service) VerifyAccess(ctx context.Context, accessToken string) (uuid.UUID, error) {
	userID, err := s.tokens.Parse(accessToken)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return uuid.Nil, ErrInvalidToken
		}
		return uuid.Nil, fmt.Errorf("service: failed to verify user: %w", err)
	}

	return userID, nil
}

func (s *service) lookupSession(ctx context.Context, refreshToken string) (*Session, string, error) {
	sessionID, secret, ok := splitRefreshToken(refreshToken)
	if !ok {
		return nil, "", ErrInvalidSession
	}

	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, "", ErrInvalidSession
		}
		log.Error().Err(err).Stringer("session_id", sessionID).Msg("service: failed to fetch session")
		return nil, "", fmt.Errorf("service: failed to fetch session: %w", err)
	}

	if session.Revoked || time.Now().After(session.ExpiresAt) {
		return nil, "", ErrInvalidSession
	}

	return session, secret, nil
}

func splitRefreshToken(refreshToken string) (uuid.UUID, string, bool) {
	parts := strings.SplitN(refreshToken, ".", 2)
	if len(parts) != 2 {
		return uuid.Nil, "", false
	}
	sessionID, err := uuid.FromString(parts[0])
	if err != nil {
		return uuid.Nil, "", false
	}
	return sessionID, parts[1], true
}
