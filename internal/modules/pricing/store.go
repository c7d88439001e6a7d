// README: Promotions store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// BestActiveOffer returns the highest OFFER-type promotion on the active
// homepage that has not passed its timeline, or nil when none is running.
func (s *PGStore) BestActiveOffer(ctx context.Context) (*Offer, error) {
	row := s.db.QueryRow(ctx, `
		SELECT p.title, p.discount
		FROM homepage_promotions p
		JOIN homepages h ON h.id = p.homepage_id
		WHERE h.is_active = true
		  AND p.type = 'OFFER'
		  AND p.timeline >= CURRENT_DATE
		ORDER BY p.discount DESC
		LIMIT 1`,
	)

	var title, discount string
	err := row.Scan(&title, &discount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Discounts are stored as display strings like "15%".
	pct, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(discount, "%")))
	if err != nil {
		return nil, nil
	}
	return &Offer{Title: title, DiscountPct: pct}, nil
}
