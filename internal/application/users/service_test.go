package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KAMLESH7939/backend-inclusight/internal/application"
	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/users"
)

type memRepo struct {
	byEmail map[string]*domain.User
	creates int
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.byEmail[email], nil
}

func (r *memRepo) Create(_ context.Context, u *domain.User) error {
	r.creates++
	r.byEmail[u.Email] = u
	return nil
}

func TestSaveCreatesThenFinds(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := &memRepo{byEmail: map[string]*domain.User{}}
	svc := &Service{Repo: repo, Clock: application.FixedClock(now)}

	u, created, err := svc.Save(context.Background(), SaveCommand{Name: " Ada ", Email: "Ada@Example.com", Avatar: "https://img/a.png"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !created || u.Email != "ada@example.com" || u.Name != "Ada" || !u.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v created=%v", u, created)
	}

	again, created, err := svc.Save(context.Background(), SaveCommand{Name: "Someone Else", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if created || again.ID != u.ID || again.Name != "Ada" {
		t.Fatalf("expected existing profile, got %+v created=%v", again, created)
	}
	if repo.creates != 1 {
		t.Fatalf("expected a single create, got %d", repo.creates)
	}
}

func TestSaveValidates(t *testing.T) {
	svc := &Service{Repo: &memRepo{byEmail: map[string]*domain.User{}}}
	for _, cmd := range []SaveCommand{
		{Name: "", Email: "a@b.c"},
		{Name: "A", Email: ""},
		{Name: "A", Email: "not-an-email"},
		{Name: "A", Email: "A <a@b.c>"},
	} {
		if _, _, err := svc.Save(context.Background(), cmd); !errors.Is(err, domain.ErrInvalidUser) {
			t.Errorf("%+v: expected ErrInvalidUser, got %v", cmd, err)
		}
	}
}
