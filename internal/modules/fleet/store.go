// README: Car store backed by PostgreSQL.
package fleet

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

var ErrNotFound = types.NotFound("Car not found")

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Car, error) {
	row := s.db.QueryRow(ctx, `
		SELECT c.id, c.car_no, c.status, c.color, c.image_urls,
		       m.id, m.brand, m.model, m.dynamic_rental_price,
		       m.kilometer_limit_per_hr, m.category, m.fuel_type, m.seating_capacity
		FROM cars c
		JOIN car_models m ON m.id = c.model_id
		WHERE c.id = $1`, string(id),
	)

	var c Car
	var imageURLs []byte
	err := row.Scan(
		&c.ID, &c.CarNo, &c.Status, &c.Color, &imageURLs,
		&c.Model.ID, &c.Model.Brand, &c.Model.Model, &c.Model.DynamicRentalPrice,
		&c.Model.KilometerLimitPerHr, &c.Model.Category, &c.Model.FuelType, &c.Model.SeatingCapacity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(imageURLs) > 0 {
		_ = json.Unmarshal(imageURLs, &c.ImageURLs)
	}
	return &c, nil
}
