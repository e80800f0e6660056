package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placehub/placehub/internal/domain/place"
	"github.com/placehub/placehub/internal/domain/user"
	"github.com/placehub/placehub/internal/observability"
)

const placeColumns = `id, title, description, address, lat, lng, image_path, creator_id, created_at, updated_at`

type PlacesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPlacesRepo(pool *pgxpool.Pool, prom *observability.Prom) *PlacesRepo {
	return &PlacesRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *PlacesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanPlace(row pgx.Row, p *place.Place) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Address,
		&p.Location.Lat, &p.Location.Lng,
		&p.ImagePath, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt,
	)
}

// Create persists a new place AND the matching entry in the creator's place
// list as one transaction. Either both rows land or neither does; a place
// must never exist without its user_places entry.
func (r *PlacesRepo) Create(ctx context.Context, p place.Place) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// the creator must exist before we hang a place off them

	var exists bool

	err = r.observe("places.create.creator_check", func() error {
		return tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, p.CreatorID).Scan(&exists)
	})

	if err != nil {
		return
	}

	if !exists {
		err = user.ErrNotFound
		return
	}

	err = r.observe("places.create.insert", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO places (`+placeColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			p.ID, p.Title, p.Description, p.Address,
			p.Location.Lat, p.Location.Lng,
			p.ImagePath, p.CreatorID, p.CreatedAt, p.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return
	}

	err = r.observe("places.create.list_append", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO user_places (user_id, place_id) VALUES ($1,$2)`,
			p.CreatorID, p.ID,
		)
		return e
	})

	if err != nil {
		return
	}

	err = tx.Commit(ctx)

	return
}

// Delete removes the place row and pulls it from the creator's place list as
// one transaction. The caller has already checked ownership.
func (r *PlacesRepo) Delete(ctx context.Context, p place.Place) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = r.observe("places.delete.place_row", func() error {
		tag, e := tx.Exec(ctx, `DELETE FROM places WHERE id = $1`, p.ID)

		if e != nil {
			return e
		}

		if tag.RowsAffected() == 0 {
			return place.ErrNotFound
		}

		return nil
	})

	if err != nil {
		return
	}

	err = r.observe("places.delete.list_pull", func() error {
		_, e := tx.Exec(ctx,
			`DELETE FROM user_places WHERE user_id = $1 AND place_id = $2`,
			p.CreatorID, p.ID,
		)
		return e
	})

	if err != nil {
		return
	}

	err = tx.Commit(ctx)

	return
}

func (r *PlacesRepo) GetByID(ctx context.Context, id string) (p place.Place, err error) {
	err = r.observe("places.get_by_id", func() error {
		return scanPlace(r.pool.QueryRow(ctx,
			`SELECT `+placeColumns+` FROM places WHERE id = $1`, id), &p)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = place.ErrNotFound
		}

		p = place.Place{}
		return
	}
	return
}

// GetByIDWithCreator loads a place together with its creator in one round
// trip; the delete path needs both for the ownership check and the list
// pull.
func (r *PlacesRepo) GetByIDWithCreator(ctx context.Context, id string) (p place.Place, creator user.User, err error) {
	err = r.observe("places.get_with_creator", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT p.id, p.title, p.description, p.address, p.lat, p.lng,
			        p.image_path, p.creator_id, p.created_at, p.updated_at,
			        u.id, u.name, u.email, u.image_path, u.created_at, u.updated_at
			 FROM places p
			 JOIN users u ON u.id = p.creator_id
			 WHERE p.id = $1`, id,
		).Scan(
			&p.ID, &p.Title, &p.Description, &p.Address,
			&p.Location.Lat, &p.Location.Lng,
			&p.ImagePath, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt,
			&creator.ID, &creator.Name, &creator.Email, &creator.ImagePath, &creator.CreatedAt, &creator.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = place.ErrNotFound
		}

		p, creator = place.Place{}, user.User{}
		return
	}
	return
}

// ListByCreator reads through the user's place list, not the creator_id
// column, so the response reflects exactly what the membership index holds.
func (r *PlacesRepo) ListByCreator(ctx context.Context, userID string) (places []place.Place, err error) {
	var rows pgx.Rows

	err = r.observe("places.list_by_creator", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT p.id, p.title, p.description, p.address, p.lat, p.lng,
			        p.image_path, p.creator_id, p.created_at, p.updated_at
			 FROM user_places up
			 JOIN places p ON p.id = up.place_id
			 WHERE up.user_id = $1
			 ORDER BY p.created_at ASC, p.id ASC`,
			userID,
		)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	// an empty list is a normal answer here, not an error
	places = make([]place.Place, 0)

	for rows.Next() {
		var p place.Place

		e := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Address,
			&p.Location.Lat, &p.Location.Lng,
			&p.ImagePath, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt,
		)

		if e != nil {
			err = e
			return
		}

		places = append(places, p)
	}

	e := rows.Err()

	if e != nil {
		if r.prom != nil {
			r.prom.DbErrorsTotal.WithLabelValues("places.list_by_creator", "rows_err").Inc()
		}
		err = e
		return
	}

	return
}

func (r *PlacesRepo) Update(ctx context.Context, id string, req place.UpdatePlaceRequest) (p place.Place, err error) {
	err = r.observe("places.update", func() error {
		return scanPlace(r.pool.QueryRow(ctx,
			`UPDATE places
			 SET title = $2,
			     description = $3,
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+placeColumns,
			id, req.Title, req.Description), &p)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = place.ErrNotFound
		}

		p = place.Place{}
		return
	}
	return
}
