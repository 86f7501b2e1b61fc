package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking/internal/model"
)

// VenueRepo reads venues. Venues are seeded and never modified here.
type VenueRepo struct {
	db *sqlx.DB
}

// NewVenueRepo returns a VenueRepo bound to the given database.
func NewVenueRepo(db *sqlx.DB) *VenueRepo { return &VenueRepo{db: db} }

// GetByIDTx reads a venue inside the caller's transaction. It returns
// ErrVenueNotFound when the id does not exist.
func (r *VenueRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Venue, error) {
	return getVenue(ctx, tx, id)
}

// GetByID reads a venue outside of any transaction.
func (r *VenueRepo) GetByID(ctx context.Context, id int64) (*model.Venue, error) {
	return getVenue(ctx, r.db, id)
}

func getVenue(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Venue, error) {
	var v model.Venue
	err := sqlx.GetContext(ctx, q, &v, `SELECT id, name, capacity, created_at, updated_at FROM venues WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get venue %d: %w", id, err)
	}
	return &v, nil
}

// List returns a page of venues ordered by id.
func (r *VenueRepo) List(ctx context.Context, limit, offset int) ([]model.Venue, error) {
	const q = `SELECT id, name, capacity, created_at, updated_at FROM venues ORDER BY id LIMIT ? OFFSET ?`
	venues := []model.Venue{}
	if err := r.db.SelectContext(ctx, &venues, q, limit, offset); err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}
