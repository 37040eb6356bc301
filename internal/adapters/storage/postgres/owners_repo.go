package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pet-owner-reports/internal/domain/owners"
)

type OwnersRepo struct {
	db *sql.DB
}

func NewOwnersRepo(db *sql.DB) *OwnersRepo {
	return &OwnersRepo{db: db}
}

func (r *OwnersRepo) Create(ctx context.Context, o owners.Owner) (owners.Owner, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO owners (name, phone_number)
		VALUES ($1, $2)
		RETURNING id
	`, o.Name, o.PhoneNumber).Scan(&o.ID)
	if err != nil {
		return owners.Owner{}, err
	}
	return o, nil
}

func (r *OwnersRepo) GetByID(ctx context.Context, id int64) (owners.Owner, error) {
	var o owners.Owner
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, phone_number
		FROM owners
		WHERE id = $1
	`, id).Scan(&o.ID, &o.Name, &o.PhoneNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return owners.Owner{}, owners.ErrNotFound
		}
		return owners.Owner{}, err
	}
	return o, nil
}

func (r *OwnersRepo) List(ctx context.Context) ([]owners.Owner, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, phone_number
		FROM owners
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]owners.Owner, 0)
	for rows.Next() {
		var o owners.Owner
		if err := rows.Scan(&o.ID, &o.Name, &o.PhoneNumber); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
