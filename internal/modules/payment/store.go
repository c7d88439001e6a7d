// README: Payment store backed by PostgreSQL.
package payment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

var ErrNotFound = types.NotFound("Payment not found")

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, p *Payment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payments
			(id, booking_id, customer_id, amount_inr, payment_type, status,
			 payment_method, transaction_id, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(p.ID), string(p.BookingID), string(p.CustomerID), p.Amount,
		string(p.Type), string(p.Status), nullable(p.Method),
		nullable(p.TransactionID), nullable(p.Remarks), p.CreatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Payment, error) {
	row := s.db.QueryRow(ctx, paymentSelect+` WHERE id = $1`, string(id))
	return scanPayment(row)
}

func (s *PGStore) ListByBooking(ctx context.Context, bookingID types.ID) ([]*Payment, error) {
	rows, err := s.db.Query(ctx,
		paymentSelect+` WHERE booking_id = $1 ORDER BY created_at ASC`, string(bookingID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (s *PGStore) ListByCustomer(ctx context.Context, customerID types.ID, limit, offset int) ([]*Payment, error) {
	rows, err := s.db.Query(ctx,
		paymentSelect+` WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(customerID), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (s *PGStore) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Payment, error) {
	rows, err := s.db.Query(ctx,
		paymentSelect+` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// UpdateStatus moves a payment between statuses with a compare-and-set on
// the expected current status, recording any confirmation details.
func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, in ConfirmInput) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = $3,
		    payment_method = COALESCE(NULLIF($4, ''), payment_method),
		    transaction_id = COALESCE(NULLIF($5, ''), transaction_id),
		    remarks = COALESCE(NULLIF($6, ''), remarks)
		WHERE id = $1 AND status = $2`,
		string(id), string(from), string(to), in.Method, in.TransactionID, in.Remarks,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.Conflict("Payment is not in %s status", from)
	}
	return nil
}

const paymentSelect = `
	SELECT id, booking_id, customer_id, amount_inr, payment_type, status,
	       COALESCE(payment_method, ''), COALESCE(transaction_id, ''),
	       COALESCE(remarks, ''), created_at
	FROM payments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.BookingID, &p.CustomerID, &p.Amount, &p.Type, &p.Status,
		&p.Method, &p.TransactionID, &p.Remarks, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collect(rows pgx.Rows) ([]*Payment, error) {
	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
