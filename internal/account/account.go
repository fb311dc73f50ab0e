// internal/account/account.go
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"geekshop/internal/auth"
	"geekshop/internal/domain"
	"geekshop/internal/storage"
	val "geekshop/internal/validator"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store storage.UserStorage
}

func NewService(store storage.UserStorage) *Service {
	return &Service{store: store}
}

type registration struct {
	Name     string `validate:"required,notblank,max=128"`
	Login    string `validate:"required,notblank,nospace,max=64"`
	Password string `validate:"required,notblank,maxbytes=72"`
}

// Register создаёт покупателя с нулевым балансом и возвращает его id.
// Занятый логин проверяется первым, с учётом регистра.
func (s *Service) Register(ctx context.Context, name, login, password string) (int, error) {
	if err := val.Struct(registration{Name: name, Login: login, Password: password}); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	exists, err := s.store.LoginExists(ctx, login)
	if err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}
	if exists {
		return 0, fmt.Errorf("login %q: %w", login, domain.ErrDuplicateLogin)
	}

	id, err := s.store.NextUserID(ctx)
	if err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return 0, fmt.Errorf("%w: Password is too long", domain.ErrInvalidInput)
	}
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{ID: id, Name: name, Login: login, PasswordHash: hash}
	if err := s.store.InsertUser(ctx, user); err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}

	slog.Info("User registered", "user_id", id, "login", login)
	return id, nil
}

// Authenticate возвращает пользователя без хэша пароля или ErrNotFound.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	ok, err := s.store.VerifyCredentials(ctx, login, password)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		slog.Debug("Credentials rejected", "login", login)
		return nil, fmt.Errorf("login %q: %w", login, domain.ErrNotFound)
	}

	user, err := s.store.FindUserByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// Profile отдаёт пользователя с актуальным балансом бонусов
func (s *Service) Profile(ctx context.Context, userID int) (*domain.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}
