package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/internal/domain/repository"
)

const userColumns = `id, uid, name, email, password_hash, role, pfp, car, grade_data, ap_exam, created_at, updated_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	err := WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (uid, name, email, password_hash, role, pfp, car, grade_data, ap_exam)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`, u.UID, u.Name, u.Email, u.Password, string(u.Role), u.Pfp, u.Car, u.GradeData, u.APExam)
		return row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	})
	return classify("create user", err)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, classify("get user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid)
	u, err := scanUser(row)
	if err != nil {
		return nil, classify("get user", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()

	out := []*entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify("list users", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list users", err)
	}
	return out, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	err := WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE users
			SET uid = $1, name = $2, email = $3, password_hash = $4, role = $5,
			    pfp = $6, car = $7, grade_data = $8, ap_exam = $9, updated_at = now()
			WHERE id = $10
			RETURNING updated_at
		`, u.UID, u.Name, u.Email, u.Password, string(u.Role), u.Pfp, u.Car, u.GradeData, u.APExam, u.ID)
		return row.Scan(&u.UpdatedAt)
	})
	return classify("update user", err)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	err := WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return entity.ErrNotFound
		}
		return nil
	})
	return classify("delete user", err)
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := row.Scan(&u.ID, &u.UID, &u.Name, &u.Email, &u.Password, &role, &u.Pfp, &u.Car,
		&u.GradeData, &u.APExam, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	u.Role = entity.Role(role)
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
