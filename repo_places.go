package places

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Places persists place records. Linkage to the owning user row is
// handled by the commands, not here, so every mutating method takes
// the transaction it must run in.
type Places interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Place, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Place, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Place, error)
	CreateTx(ctx context.Context, tx bun.IDB, place *Place) (*Place, error)
	UpdateTx(ctx context.Context, tx bun.IDB, place *Place) (*Place, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type placesRepo struct {
	db *bun.DB
}

func NewPlacesRepository(db *bun.DB) Places {
	return &placesRepo{db: db}
}

func (r *placesRepo) GetByID(ctx context.Context, id uuid.UUID) (*Place, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *placesRepo) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Place, error) {
	place := new(Place)

	err := tx.NewSelect().
		Model(place).
		Relation("Owner").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapPlaceStoreError(err)
	}

	return place, nil
}

func (r *placesRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Place, error) {
	var records []*Place

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", ownerID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list places")
	}

	return records, nil
}

func (r *placesRepo) CreateTx(ctx context.Context, tx bun.IDB, place *Place) (*Place, error) {
	if place.ID == uuid.Nil {
		place.ID = uuid.New()
	}

	now := time.Now()
	place.CreatedAt = &now
	place.UpdatedAt = &now

	_, err := tx.NewInsert().
		Model(place).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create place")
	}

	return place, nil
}

func (r *placesRepo) UpdateTx(ctx context.Context, tx bun.IDB, place *Place) (*Place, error) {
	now := time.Now()
	place.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(place).
		Column("title", "description", "updated_at").
		Where("?TableAlias.id = ?", place.ID).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update place")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read update result")
	}

	if rows == 0 {
		return nil, ErrPlaceNotFound
	}

	return place, nil
}

func (r *placesRepo) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Place)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete place")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to read delete result")
	}

	if rows == 0 {
		return ErrPlaceNotFound
	}

	return nil
}

func mapPlaceStoreError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlaceNotFound
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to load place")
}
