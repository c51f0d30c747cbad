package library

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookRepo is the catalog side: plain CRUD, no transactions needed. Stock
// counters are only ever moved by LoanRepo (loans) or an explicit Update
// (damage / new copies recorded by an admin).
type BookRepo struct{ DB *pgxpool.Pool }

const bookCols = `id, title, author, category, isbn, image_url, arrival_date,
	total_stock, available_stock, damaged_stock, created_at`

func (r *BookRepo) Create(ctx context.Context, b *Book) error {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO books(id, title, author, category, isbn, image_url, arrival_date,
		                  total_stock, available_stock, damaged_stock, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, b.Title, b.Author, b.Category, b.ISBN, b.ImageURL, b.ArrivalDate,
		b.TotalStock, b.AvailableStock, b.DamagedStock, b.CreatedAt)
	return err
}

func (r *BookRepo) Get(ctx context.Context, id string) (*Book, error) {
	b := &Book{}
	err := r.DB.QueryRow(ctx, `SELECT `+bookCols+` FROM books WHERE id=$1`, id).Scan(
		&b.ID, &b.Title, &b.Author, &b.Category, &b.ISBN, &b.ImageURL, &b.ArrivalDate,
		&b.TotalStock, &b.AvailableStock, &b.DamagedStock, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BookRepo) List(ctx context.Context) ([]Book, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+bookCols+` FROM books ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.ISBN, &b.ImageURL,
			&b.ArrivalDate, &b.TotalStock, &b.AvailableStock, &b.DamagedStock, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookRepo) Update(ctx context.Context, b *Book) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE books
		SET title=$2, author=$3, category=$4, isbn=$5, image_url=$6, arrival_date=$7,
		    total_stock=$8, available_stock=$9, damaged_stock=$10
		WHERE id=$1`,
		b.ID, b.Title, b.Author, b.Category, b.ISBN, b.ImageURL, b.ArrivalDate,
		b.TotalStock, b.AvailableStock, b.DamagedStock)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *BookRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}
