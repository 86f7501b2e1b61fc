package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking/internal/model"
)

// GenreRepo reads the seeded genres table.
type GenreRepo struct {
	db *sqlx.DB
}

// NewGenreRepo returns a GenreRepo bound to the given database.
func NewGenreRepo(db *sqlx.DB) *GenreRepo { return &GenreRepo{db: db} }

// ExistsTx reports whether a genre with the given id exists.
func (r *GenreRepo) ExistsTx(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	var ok bool
	if err := tx.GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM genres WHERE id = ?)`, id); err != nil {
		return false, fmt.Errorf("check genre %d: %w", id, err)
	}
	return ok, nil
}

// List returns every genre ordered by id.
func (r *GenreRepo) List(ctx context.Context) ([]model.Genre, error) {
	genres := []model.Genre{}
	if err := r.db.SelectContext(ctx, &genres, `SELECT id, name FROM genres ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}
