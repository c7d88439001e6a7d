// README: Freeze store backed by PostgreSQL.
package freeze

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

var ErrNotFound = types.NotFound("Freeze not found")

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, f *Freeze) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_freezes
			(id, car_id, customer_id, start_date, end_date,
			 delivery_latitude, delivery_longitude, pickup_latitude, pickup_longitude,
			 expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(f.ID), string(f.CarID), string(f.CustomerID), f.Start, f.End,
		f.Delivery.Lat, f.Delivery.Lng, f.Pickup.Lat, f.Pickup.Lng,
		f.ExpiresAt, f.IsActive, f.CreatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Freeze, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, car_id, customer_id, start_date, end_date,
		       delivery_latitude, delivery_longitude, pickup_latitude, pickup_longitude,
		       expires_at, is_active, created_at
		FROM booking_freezes
		WHERE id = $1`, string(id),
	)

	var f Freeze
	err := row.Scan(
		&f.ID, &f.CarID, &f.CustomerID, &f.Start, &f.End,
		&f.Delivery.Lat, &f.Delivery.Lng, &f.Pickup.Lat, &f.Pickup.Lng,
		&f.ExpiresAt, &f.IsActive, &f.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CustomerLiveOverlap reports whether the customer already holds a live
// freeze intersecting [start, end).
func (s *PGStore) CustomerLiveOverlap(ctx context.Context, customerID types.ID, start, end, now time.Time) (bool, error) {
	return s.liveOverlap(ctx, `customer_id`, customerID, start, end, now)
}

// CarLiveOverlap reports whether any live freeze on the car intersects
// [start, end).
func (s *PGStore) CarLiveOverlap(ctx context.Context, carID types.ID, start, end, now time.Time) (bool, error) {
	return s.liveOverlap(ctx, `car_id`, carID, start, end, now)
}

func (s *PGStore) liveOverlap(ctx context.Context, column string, id types.ID, start, end, now time.Time) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT 1
		FROM booking_freezes
		WHERE `+column+` = $1
		  AND is_active = true AND expires_at > $4
		  AND start_date < $3 AND end_date > $2
		LIMIT 1`,
		string(id), start, end, now,
	)

	var one int
	err := row.Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PGStore) UpdateLocations(ctx context.Context, id types.ID, delivery, pickup types.Point) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE booking_freezes
		SET delivery_latitude = $2, delivery_longitude = $3,
		    pickup_latitude = $4, pickup_longitude = $5
		WHERE id = $1`,
		string(id), delivery.Lat, delivery.Lng, pickup.Lat, pickup.Lng,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate retires a freeze once it has been converted into a booking.
func (s *PGStore) Deactivate(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE booking_freezes SET is_active = false WHERE id = $1`, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM booking_freezes WHERE id = $1`, string(id))
	return err
}

// DeleteExpired removes freezes that have expired or were deactivated.
// The cleanup is hygiene only; every read path filters on liveness.
func (s *PGStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM booking_freezes WHERE expires_at <= $1 OR is_active = false`, now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
