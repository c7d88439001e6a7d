// README: Customer incentive ledger backed by PostgreSQL.
//
// Referral credits and the rookie flag are only ever changed through the
// single-statement relative updates below, so concurrent bookings and
// cancellations cannot lose increments.
package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Tag string

const (
	TagRookie   Tag = "ROOKIE"
	TagTraveler Tag = "TRAVELER"
)

type Customer struct {
	ID                types.ID
	ReferralCount     int
	RookieBenefitUsed bool
	Tag               Tag
	ReferredBy        types.ID // empty for organic signups
}

var ErrNotFound = types.NotFound("User not found")

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Customer, error) {
	row := s.db.QueryRow(ctx, `
		SELECT u.id, u.referral_count, u.referred_by, d.rookie_benefit_used, d.tag
		FROM users u
		JOIN customer_details d ON d.customer_id = u.id
		WHERE u.id = $1`, string(id),
	)

	var c Customer
	var referredBy sql.NullString
	err := row.Scan(&c.ID, &c.ReferralCount, &referredBy, &c.RookieBenefitUsed, &c.Tag)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if referredBy.Valid {
		c.ReferredBy = types.ID(referredBy.String)
	}
	return &c, nil
}

// AddReferralCredits adjusts the referral balance by delta, which may be
// negative for a debit.
func (s *PGStore) AddReferralCredits(ctx context.Context, id types.ID, delta int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET referral_count = referral_count + $2 WHERE id = $1`,
		string(id), delta,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetRookieBenefitUsed(ctx context.Context, id types.ID, used bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE customer_details SET rookie_benefit_used = $2 WHERE customer_id = $1`,
		string(id), used,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetTag(ctx context.Context, id types.ID, t Tag) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE customer_details SET tag = $2 WHERE customer_id = $1`,
		string(id), string(t),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
