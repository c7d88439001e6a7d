// README: Availability store backed by PostgreSQL.
package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// OccupiedPeriods returns the raw occupied intervals for a car inside
// [from, to): confirmed bookings in a blocking status plus freezes that are
// still live at the given instant. Sorted by start.
func (s *PGStore) OccupiedPeriods(ctx context.Context, carID types.ID, from, to, now time.Time) ([]Period, error) {
	rows, err := s.db.Query(ctx, `
		SELECT start_date, end_date
		FROM bookings
		WHERE car_id = $1
		  AND status IN ('BOOKED', 'DELIVERED', 'RETURNED')
		  AND start_date < $3 AND end_date > $2
		UNION ALL
		SELECT start_date, end_date
		FROM booking_freezes
		WHERE car_id = $1
		  AND is_active = true AND expires_at > $4
		  AND start_date < $3 AND end_date > $2`,
		string(carID), from, to, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.Start, &p.End); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })
	return periods, nil
}

// HasBlockingOverlap reports whether any booking in a blocking status
// overlaps [start, end), optionally ignoring one booking.
func (s *PGStore) HasBlockingOverlap(ctx context.Context, carID types.ID, start, end time.Time, excludeBookingID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT 1
		FROM bookings
		WHERE car_id = $1
		  AND status IN ('BOOKED', 'DELIVERED', 'RETURNED')
		  AND start_date < $3 AND end_date > $2
		  AND ($4 = '' OR id <> $4)
		LIMIT 1`,
		string(carID), start, end, string(excludeBookingID),
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

// LastBlockingEnd returns the end of the latest blocking booking still
// running or upcoming, used for "next available from" hints.
func (s *PGStore) LastBlockingEnd(ctx context.Context, carID types.ID, after time.Time) (*time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT end_date
		FROM bookings
		WHERE car_id = $1
		  AND status IN ('BOOKED', 'DELIVERED', 'RETURNED')
		  AND end_date > $2
		ORDER BY end_date DESC
		LIMIT 1`,
		string(carID), after,
	)

	var end time.Time
	err := row.Scan(&end)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &end, nil
}
