// README: Eligibility gate; only active, verified customers with a complete address may book.
package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type VerificationGate struct {
	db *pgxpool.Pool
}

func NewVerificationGate(db *pgxpool.Pool) *VerificationGate {
	return &VerificationGate{db: db}
}

// profileRecord is the snapshot the gate evaluates. The customer_details
// join is optional; a user without a profile row fails eligibility.
type profileRecord struct {
	AccountStatus string
	HasProfile    bool
	Verified      bool
	AddressLine   string
	Area          string
	State         string
	Country       string
}

func (g *VerificationGate) Eligible(ctx context.Context, customerID types.ID) error {
	row := g.db.QueryRow(ctx, `
		SELECT u.status,
		       cd.customer_id IS NOT NULL,
		       COALESCE(cd.is_verified, FALSE),
		       COALESCE(cd.address_line, ''),
		       COALESCE(cd.area, ''),
		       COALESCE(cd.state, ''),
		       COALESCE(cd.country, '')
		FROM users u
		LEFT JOIN customer_details cd ON cd.customer_id = u.id
		WHERE u.id = $1`,
		string(customerID),
	)
	var rec profileRecord
	err := row.Scan(&rec.AccountStatus, &rec.HasProfile, &rec.Verified,
		&rec.AddressLine, &rec.Area, &rec.State, &rec.Country)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return rec.check()
}

func (r profileRecord) check() error {
	if r.AccountStatus != "ACTIVE" {
		return types.Forbidden("Your account is %s. Only active accounts can make bookings.",
			strings.ToLower(r.AccountStatus))
	}
	if !r.HasProfile {
		return types.Forbidden("Complete your profile to make bookings.")
	}
	if !r.Verified {
		return types.Forbidden("Your account is not verified. Please complete your profile with license and ID documents.")
	}
	if r.AddressLine == "" || r.Area == "" || r.State == "" || r.Country == "" {
		return types.Forbidden("Complete address is required to make bookings. Please fill all address fields.")
	}
	return nil
}
