package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/users"
)

type UserRepository struct {
	db *sql.DB
	d  Dialect
}

func NewUserRepository(db *sql.DB, d Dialect) *UserRepository {
	return &UserRepository{db: db, d: d}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := r.d.Rebind(`SELECT id, name, email, avatar, created_at FROM users WHERE email = ? LIMIT 1`)
	var u domain.User
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Name, &u.Email, &avatar, timeCol{&u.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Avatar = avatar.String
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	q := r.d.Rebind(`INSERT INTO users (id, name, email, avatar, created_at) VALUES (?,?,?,?,?)`)
	_, err := r.db.ExecContext(ctx, q, u.ID, stringOrDash(u.Name), u.Email, u.Avatar, r.d.timeArg(u.CreatedAt))
	return err
}
