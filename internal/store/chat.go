package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lox/floatchat/internal/models"
)

func (s *Store) InsertMessage(ctx context.Context, m models.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, sender, content, kind, payload_json, flagged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.SessionID, m.Sender, m.Content, m.Kind, m.Payload, m.Flagged, m.CreatedAt.UTC())
	return err
}

// GetMessages returns a session's transcript in the order it was written.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, sender, content, kind, payload_json, flagged, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &m.Kind, &m.Payload, &m.Flagged, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) SetMessageFlag(ctx context.Context, sessionID, messageID string, flagged bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_messages SET flagged = ? WHERE session_id = ? AND id = ?
	`, flagged, sessionID, messageID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSessionsBefore removes sessions whose latest message is older than cutoff.
func (s *Store) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_messages
		WHERE session_id IN (
			SELECT session_id FROM chat_messages
			GROUP BY session_id
			HAVING MAX(created_at) < ?
		)
	`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
