// Package identity manages accounts, credentials and the mandatory password
// rotation on first sign-in.
package identity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"workflow/internal/apperror"
	"workflow/internal/models"
	"workflow/internal/policy"
	"workflow/internal/storage"
)

// Service authenticates users and administers accounts.
type Service struct {
	users  *storage.Table[models.User]
	logger *slog.Logger
	cost   int
}

// Option customizes a Service.
type Option func(*Service)

// WithHashCost sets the bcrypt cost used for new credentials.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// New constructs the identity service.
func New(users *storage.Table[models.User], logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{users: users, logger: logger, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewUser carries the fields an administrator supplies for a new account.
type NewUser struct {
	Username string
	Password string
	Name     string
	Email    string
	Role     models.Role
}

type seedUser struct {
	NewUser
	ID string
}

var defaultUsers = []seedUser{
	{ID: "u1", NewUser: NewUser{Username: "admin", Password: "admin123", Name: "Administrator", Email: "admin@company.com", Role: models.RoleAdmin}},
	{ID: "u2", NewUser: NewUser{Username: "staff1", Password: "password123", Name: "Nguyen Van A", Email: "a.nguyen@company.com", Role: models.RoleStaff}},
	{ID: "u3", NewUser: NewUser{Username: "staff2", Password: "password123", Name: "Tran Thi B", Email: "b.tran@company.com", Role: models.RoleStaff}},
	{ID: "u4", NewUser: NewUser{Username: "staff3", Password: "password123", Name: "Le Van C", Email: "c.le@company.com", Role: models.RoleStaff}},
}

// Seed stores the default accounts when the users collection has never been
// written. Every seeded account must rotate its password on first sign-in.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	stored, err := s.users.Stored(ctx)
	if err != nil || stored {
		return false, err
	}

	users := make([]models.User, 0, len(defaultUsers))
	for _, d := range defaultUsers {
		hash, err := s.hash(d.Password)
		if err != nil {
			return false, err
		}
		users = append(users, models.User{
			ID:         d.ID,
			Username:   d.Username,
			Credential: hash,
			Name:       d.Name,
			Email:      d.Email,
			Role:       d.Role,
			FirstLogin: true,
		})
	}
	if err := s.users.Replace(ctx, users); err != nil {
		return false, err
	}
	s.logger.Info("seeded default accounts", slog.Int("count", len(users)))
	return true, nil
}

// Login checks the username and password and returns the stored account.
func (s *Service) Login(ctx context.Context, username, password string) (models.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return models.User{}, err
	}
	idx := slices.IndexFunc(users, func(u models.User) bool { return u.Username == username })
	if idx < 0 || !matches(users[idx].Credential, password) {
		s.logger.Warn("login rejected", slog.String("username", username))
		return models.User{}, apperror.ErrCredential
	}
	return users[idx], nil
}

// ChangePassword replaces the caller's credential after verifying the old
// one and clears the first-login flag. It is the only operation allowed
// while that flag is set.
func (s *Service) ChangePassword(ctx context.Context, actor models.User, oldPassword, newPassword string) (models.User, error) {
	if actor.ID == "" {
		return models.User{}, apperror.Forbidden("not signed in")
	}
	if newPassword == "" {
		return models.User{}, apperror.Validation("new password is required")
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return models.User{}, err
	}

	var updated models.User
	err = s.users.Mutate(ctx, func(users []models.User) ([]models.User, error) {
		idx := slices.IndexFunc(users, func(u models.User) bool { return u.ID == actor.ID })
		if idx < 0 {
			return nil, apperror.NotFound("user", actor.ID)
		}
		if !matches(users[idx].Credential, oldPassword) {
			return nil, apperror.ErrCredential
		}
		users[idx].Credential = hash
		users[idx].FirstLogin = false
		updated = users[idx]
		return users, nil
	})
	if err != nil {
		return models.User{}, err
	}
	s.logger.Info("password changed", slog.String("user_id", updated.ID))
	return updated, nil
}

// Get returns the stored account with the given id.
func (s *Service) Get(ctx context.Context, id string) (models.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return models.User{}, err
	}
	idx := slices.IndexFunc(users, func(u models.User) bool { return u.ID == id })
	if idx < 0 {
		return models.User{}, apperror.NotFound("user", id)
	}
	return users[idx], nil
}

// List returns every account without credentials.
func (s *Service) List(ctx context.Context, actor models.User) ([]models.User, error) {
	if err := policy.RequireActive(actor); err != nil {
		return nil, err
	}
	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out, nil
}

// Create adds an account. Usernames are unique.
func (s *Service) Create(ctx context.Context, actor models.User, in NewUser) (models.User, error) {
	if err := policy.AuthorizeAdmin(actor); err != nil {
		return models.User{}, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Username == "":
		return models.User{}, apperror.Validation("username is required")
	case in.Name == "":
		return models.User{}, apperror.Validation("name is required")
	case in.Password == "":
		return models.User{}, apperror.Validation("password is required")
	case !in.Role.Valid():
		return models.User{}, apperror.Validation("unknown role %q", in.Role)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:         uuid.NewString(),
		Username:   in.Username,
		Credential: hash,
		Name:       in.Name,
		Email:      strings.TrimSpace(in.Email),
		Role:       in.Role,
		FirstLogin: true,
	}
	err = s.users.Mutate(ctx, func(users []models.User) ([]models.User, error) {
		if slices.ContainsFunc(users, func(u models.User) bool { return u.Username == user.Username }) {
			return nil, apperror.Validation("username %q already exists", user.Username)
		}
		return append(users, user), nil
	})
	if err != nil {
		return models.User{}, err
	}
	s.logger.Info("user created", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))
	return user, nil
}

// Delete removes an account. Tasks and reports that reference it are left
// untouched and keep the dangling id.
func (s *Service) Delete(ctx context.Context, actor models.User, id string) error {
	if err := policy.AuthorizeAdmin(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return apperror.Validation("cannot delete the signed-in account")
	}
	err := s.users.Mutate(ctx, func(users []models.User) ([]models.User, error) {
		idx := slices.IndexFunc(users, func(u models.User) bool { return u.ID == id })
		if idx < 0 {
			return nil, apperror.NotFound("user", id)
		}
		return slices.Delete(users, idx, idx+1), nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("user_id", id))
	return nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
