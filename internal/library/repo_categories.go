package library

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCategoryNotFound = errors.New("category not found")

type CategoryRepo struct{ DB *pgxpool.Pool }

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) Add(ctx context.Context, name string) (*Category, error) {
	c := &Category{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	_, err := r.DB.Exec(ctx, `INSERT INTO categories(id, name, created_at) VALUES ($1,$2,$3)`,
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
