// README: Booking store backed by PostgreSQL.
package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/payment"
	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

var ErrNotFound = types.NotFound("Booking not found")

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// GetOrCreateLocation reuses an existing location row with the exact same
// coordinates, creating one otherwise.
func (s *PGStore) GetOrCreateLocation(ctx context.Context, p types.Point) (types.ID, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id FROM locations WHERE latitude = $1 AND longitude = $2 LIMIT 1`,
		p.Lat, p.Lng,
	)
	var id string
	err := row.Scan(&id)
	if err == nil {
		return types.ID(id), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	id = uuid.NewString()
	_, err = s.db.Exec(ctx,
		`INSERT INTO locations (id, latitude, longitude) VALUES ($1, $2, $3)`,
		id, p.Lat, p.Lng,
	)
	if err != nil {
		return "", err
	}
	return types.ID(id), nil
}

func (s *PGStore) GetLocation(ctx context.Context, id types.ID) (*Location, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, latitude, longitude, COALESCE(address, '') FROM locations WHERE id = $1`,
		string(id),
	)
	var l Location
	if err := row.Scan(&l.ID, &l.Point.Lat, &l.Point.Lng, &l.Address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NotFound("Location not found")
		}
		return nil, err
	}
	return &l, nil
}

func (s *PGStore) SetLocationAddress(ctx context.Context, id types.ID, address string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE locations SET address = $2 WHERE id = $1`, string(id), address,
	)
	return err
}

func (s *PGStore) Create(ctx context.Context, b *Booking) error {
	summary, err := json.Marshal(b.Summary)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, car_id, customer_id, start_date, end_date,
			delivery_id, pickup_id, status, status_version, payment_status,
			remarks, payment_summary, referral_benefit, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14
		)`,
		string(b.ID), string(b.CarID), string(b.CustomerID), b.Start, b.End,
		string(b.DeliveryID), string(b.PickupID), string(b.Status), b.StatusVersion,
		string(b.PaymentStatus), nullableStr(b.Remarks), summary, b.ReferralBenefit,
		b.CreatedAt,
	)
	return err
}

const bookingSelect = `
	SELECT id, car_id, customer_id, start_date, end_date,
	       delivery_id, pickup_id, status, status_version, payment_status,
	       COALESCE(remarks, ''), payment_summary,
	       COALESCE(delivery_video_url, ''), COALESCE(delivery_otp, ''),
	       delivery_otp_generated_at, delivery_otp_verified, delivery_otp_verified_at,
	       start_kilometers,
	       COALESCE(pickup_video_url, ''), COALESCE(pickup_otp, ''),
	       pickup_otp_generated_at, pickup_otp_verified, pickup_otp_verified_at,
	       end_kilometers,
	       return_requested_at, cancelled_at, cancelled_by,
	       COALESCE(cancellation_reason, ''), referral_benefit, created_at
	FROM bookings`

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return scanBooking(s.db.QueryRow(ctx, bookingSelect+` WHERE id = $1`, string(id)))
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var summary []byte
	var deliveryOTPAt, deliveryVerifiedAt, pickupOTPAt, pickupVerifiedAt sql.NullTime
	var returnRequestedAt, cancelledAt sql.NullTime
	var startKm, endKm sql.NullInt64
	var cancelledBy sql.NullString

	err := row.Scan(
		&b.ID, &b.CarID, &b.CustomerID, &b.Start, &b.End,
		&b.DeliveryID, &b.PickupID, &b.Status, &b.StatusVersion, &b.PaymentStatus,
		&b.Remarks, &summary,
		&b.DeliveryVideoURL, &b.DeliveryOTP,
		&deliveryOTPAt, &b.DeliveryOTPVerified, &deliveryVerifiedAt,
		&startKm,
		&b.PickupVideoURL, &b.PickupOTP,
		&pickupOTPAt, &b.PickupOTPVerified, &pickupVerifiedAt,
		&endKm,
		&returnRequestedAt, &cancelledAt, &cancelledBy,
		&b.CancellationReason, &b.ReferralBenefit, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &b.Summary); err != nil {
			return nil, err
		}
	}
	b.DeliveryOTPGeneratedAt = toTimePtr(deliveryOTPAt)
	b.DeliveryOTPVerifiedAt = toTimePtr(deliveryVerifiedAt)
	b.PickupOTPGeneratedAt = toTimePtr(pickupOTPAt)
	b.PickupOTPVerifiedAt = toTimePtr(pickupVerifiedAt)
	b.ReturnRequestedAt = toTimePtr(returnRequestedAt)
	b.CancelledAt = toTimePtr(cancelledAt)
	b.StartKilometers = toIntPtr(startKm)
	b.EndKilometers = toIntPtr(endKm)
	if cancelledBy.Valid {
		b.CancelledBy = types.ID(cancelledBy.String)
	}
	return &b, nil
}

// UpdateStatus moves the booking through the state machine with an
// optimistic compare-and-set on the status version. A false return means
// the booking changed under us.
func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, paymentStatus *payment.Status) (bool, error) {
	var ps *string
	if paymentStatus != nil {
		v := string(*paymentStatus)
		ps = &v
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    status_version = status_version + 1,
		    payment_status = COALESCE($2, payment_status)
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to), ps, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetPaymentStatus(ctx context.Context, id types.ID, ps payment.Status) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE bookings SET payment_status = $2 WHERE id = $1`,
		string(id), string(ps),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateSummary(ctx context.Context, id types.ID, summary PaymentSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE bookings SET payment_summary = $2 WHERE id = $1`, string(id), raw,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetDelivery(ctx context.Context, id types.ID, videoURL string, startKm int, otp string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET delivery_video_url = $2, start_kilometers = $3,
		    delivery_otp = $4, delivery_otp_generated_at = $5
		WHERE id = $1`,
		string(id), videoURL, startKm, otp, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MarkDeliveryVerified(ctx context.Context, id types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET delivery_otp_verified = true, delivery_otp_verified_at = $2
		WHERE id = $1`,
		string(id), at,
	)
	return err
}

func (s *PGStore) SetReturnRequested(ctx context.Context, id types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE bookings SET return_requested_at = $2 WHERE id = $1`, string(id), at,
	)
	return err
}

func (s *PGStore) SetReturn(ctx context.Context, id types.ID, videoURL string, endKm int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings SET pickup_video_url = $2, end_kilometers = $3 WHERE id = $1`,
		string(id), videoURL, endKm,
	)
	return err
}

func (s *PGStore) SetPickupOTP(ctx context.Context, id types.ID, otp string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings SET pickup_otp = $2, pickup_otp_generated_at = $3 WHERE id = $1`,
		string(id), otp, at,
	)
	return err
}

func (s *PGStore) MarkPickupVerified(ctx context.Context, id types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET pickup_otp_verified = true, pickup_otp_verified_at = $2
		WHERE id = $1`,
		string(id), at,
	)
	return err
}

func (s *PGStore) SetCancellation(ctx context.Context, id, by types.ID, reason string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET cancelled_at = $2, cancelled_by = $3, cancellation_reason = $4
		WHERE id = $1`,
		string(id), at, string(by), reason,
	)
	return err
}

// HasBlockingOverlap reports whether the customer has a booking in a
// blocking status intersecting [start, end).
func (s *PGStore) HasBlockingOverlap(ctx context.Context, customerID types.ID, start, end time.Time) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE customer_id = $1
			  AND status IN ('BOOKED', 'DELIVERED', 'RETURNED')
			  AND start_date < $3 AND end_date > $2
		)`, string(customerID), start, end,
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PGStore) ListByCustomer(ctx context.Context, customerID types.ID, status Status, limit, offset int) ([]*Booking, int, error) {
	return s.list(ctx, `customer_id = $3 AND ($4 = '' OR status = $4)`,
		[]any{limit, offset, string(customerID), string(status)})
}

func (s *PGStore) List(ctx context.Context, status Status, limit, offset int) ([]*Booking, int, error) {
	return s.list(ctx, `($3 = '' OR status = $3)`, []any{limit, offset, string(status)})
}

func (s *PGStore) list(ctx context.Context, where string, args []any) ([]*Booking, int, error) {
	var total int
	countArgs := args[2:]
	countWhere := renumber(where)
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE `+countWhere, countArgs...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(ctx,
		bookingSelect+` WHERE `+where+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// renumber shifts $3/$4 placeholders down for the count query, which does
// not take limit and offset.
func renumber(where string) string {
	r := []byte(where)
	for i := range r {
		if r[i] == '$' && i+1 < len(r) {
			switch r[i+1] {
			case '3':
				r[i+1] = '1'
			case '4':
				r[i+1] = '2'
			}
		}
	}
	return string(r)
}

func (s *PGStore) CreateReview(ctx context.Context, r *Review) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reviews (id, booking_id, car_id, rating, remarks, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(r.ID), string(r.BookingID), string(r.CarID), r.Rating,
		nullableStr(r.Remarks), string(r.CreatedBy), r.CreatedAt,
	)
	return err
}

func (s *PGStore) HasReview(ctx context.Context, bookingID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE booking_id = $1)`, string(bookingID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func toIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
