package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KAMLESH7939/backend-inclusight/internal/application"
	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/users"
)

// Service handles user profiles. Profiles are found or created by email.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

type SaveCommand struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Save returns the existing profile for the email, or creates one.
// created reports whether a new profile was stored.
func (s *Service) Save(ctx context.Context, cmd SaveCommand) (u *domain.User, created bool, err error) {
	name := strings.TrimSpace(cmd.Name)
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if name == "" || email == "" {
		return nil, false, fmt.Errorf("%w: name and email are required", domain.ErrInvalidUser)
	}
	if addr, perr := mail.ParseAddress(email); perr != nil || addr.Address != email {
		return nil, false, fmt.Errorf("%w: invalid email %q", domain.ErrInvalidUser, cmd.Email)
	}

	existing, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	u = &domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Avatar:    strings.TrimSpace(cmd.Avatar),
		CreatedAt: s.now(),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		// a concurrent save for the same email may have won the unique index
		if again, ferr := s.Repo.FindByEmail(ctx, email); ferr == nil && again != nil {
			return again, false, nil
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return u, true, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}
