// Package pgstore implements messaging.Store on PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/smsgate/pkg/pg"
	"github.com/dmitrymomot/smsgate/svc/messaging"
)

// Migrations holds the schema, applied with pg.Migrate(ctx, pool, Migrations, MigrationsDir, ...).
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed messaging.Store.
type Store struct {
	db DB
}

var _ messaging.Store = (*Store)(nil)

// New creates a store over db. The schema must already be migrated.
func New(db DB) *Store {
	return &Store{db: db}
}

const messageColumns = `id, direction, conversation_phone, from_number, to_number, body,
	COALESCE(provider_message_id, ''), segments, status, error_description, created_at, updated_at`

func (s *Store) SaveMessage(ctx context.Context, msg *messaging.Message) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sms_messages (
			id, direction, conversation_phone, from_number, to_number, body,
			provider_message_id, segments, status, error_description, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)`,
		msg.ID, msg.Direction, msg.ConversationPhone, msg.From, msg.To, msg.Body,
		msg.ProviderMessageID, msg.Segments, msg.Status, msg.ErrorDescription, msg.CreatedAt, msg.UpdatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return messaging.ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) FindMessageByProviderID(ctx context.Context, providerID string) (*messaging.Message, error) {
	row := s.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM sms_messages WHERE provider_message_id = $1`, providerID)

	msg, err := scanMessage(row)
	if pg.IsNotFoundError(err) {
		return nil, messaging.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &msg, nil
}

func (s *Store) UpdateMessageStatus(ctx context.Context, providerID string, status messaging.DeliveryStatus, errorDescription *string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sms_messages
		SET status = $2, error_description = COALESCE($3, error_description), updated_at = $4
		WHERE provider_message_id = $1`,
		providerID, status, errorDescription, at,
	)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return messaging.ErrMessageNotFound
	}
	return nil
}

func (s *Store) RecordOptOut(ctx context.Context, phone string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sms_opt_outs (phone_number, opted_out_at) VALUES ($1, $2)
		ON CONFLICT (phone_number) DO UPDATE SET opted_out_at = GREATEST(sms_opt_outs.opted_out_at, EXCLUDED.opted_out_at)`,
		phone, at,
	)
	if err != nil {
		return fmt.Errorf("record opt-out: %w", err)
	}
	return nil
}

func (s *Store) RecordOptIn(ctx context.Context, phone string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sms_opt_outs (phone_number, opted_in_at) VALUES ($1, $2)
		ON CONFLICT (phone_number) DO UPDATE SET opted_in_at = GREATEST(sms_opt_outs.opted_in_at, EXCLUDED.opted_in_at)`,
		phone, at,
	)
	if err != nil {
		return fmt.Errorf("record opt-in: %w", err)
	}
	return nil
}

func (s *Store) GetOptOut(ctx context.Context, phone string) (*messaging.OptOutRecord, error) {
	rec := messaging.OptOutRecord{PhoneNumber: phone}
	err := s.db.QueryRow(ctx,
		`SELECT opted_out_at, opted_in_at FROM sms_opt_outs WHERE phone_number = $1`, phone,
	).Scan(&rec.OptedOutAt, &rec.OptedInAt)
	if pg.IsNotFoundError(err) {
		return nil, messaging.ErrOptOutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opt-out: %w", err)
	}
	return &rec, nil
}

func (s *Store) ListConversation(ctx context.Context, phone string, limit int) ([]messaging.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT * FROM (
			SELECT `+messageColumns+` FROM sms_messages
			WHERE conversation_phone = $1
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC`,
		phone, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}

	thread, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (messaging.Message, error) {
		return scanMessage(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return thread, nil
}

func scanMessage(row pgx.Row) (messaging.Message, error) {
	var m messaging.Message
	err := row.Scan(
		&m.ID, &m.Direction, &m.ConversationPhone, &m.From, &m.To, &m.Body,
		&m.ProviderMessageID, &m.Segments, &m.Status, &m.ErrorDescription, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
