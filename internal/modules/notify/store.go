// README: Notification store backed by PostgreSQL.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Notify records a notification for one user.
func (s *PGStore) Notify(ctx context.Context, userID types.ID, subject, body string, kind Kind) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, subject, body, kind, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)`,
		uuid.NewString(), string(userID), subject, body, string(kind), time.Now().UTC(),
	)
	return err
}

// NotifyAdmins fans a notification out to every admin account.
func (s *PGStore) NotifyAdmins(ctx context.Context, subject, body string, kind Kind) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, subject, body, kind, read, created_at)
		SELECT gen_random_uuid(), u.id, $1, $2, $3, false, $4
		FROM users u
		WHERE u.is_admin = true`,
		subject, body, string(kind), time.Now().UTC(),
	)
	return err
}

func (s *PGStore) ListByUser(ctx context.Context, userID types.ID, limit, offset int) ([]*Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, subject, body, kind, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		string(userID), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Subject, &n.Body, &n.Kind, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *PGStore) MarkRead(ctx context.Context, id, userID types.ID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		string(id), string(userID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.NotFound("Notification not found")
	}
	return nil
}
