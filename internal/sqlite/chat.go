// Append-only chat log. Records are immutable once written; created_at
// is strictly increasing within a session.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sietch-labs/sietch/pkg/types"
)

// AppendChat appends one chat record. The chat ID is generated; the
// timestamp is clamped to one millisecond past the session's latest
// record if the clock has not moved, keeping session ordering strict.
func (b *Backend) AppendChat(rec *types.ChatRecord) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return "", err
	}
	if rec == nil || rec.SessionID == "" || rec.Text == "" {
		return "", types.ErrInvalidData
	}
	if rec.Sender != types.SenderUser && rec.Sender != types.SenderAssistant {
		return "", fmt.Errorf("%w: unknown sender %q", types.ErrInvalidData, rec.Sender)
	}

	now := time.Now().UTC()
	// MAX is NULL for a session with no records yet.
	var last sql.NullString
	err := b.db.QueryRow(
		"SELECT MAX(created_at) FROM chat_log WHERE session_id = ?",
		rec.SessionID,
	).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("checking session %s: %w", rec.SessionID, err)
	}
	if last.Valid && last.String != "" {
		lastAt, perr := parseTime(last.String)
		if perr == nil && !now.After(lastAt) {
			now = lastAt.Add(time.Millisecond)
		}
	}
	rec.CreatedAt = now
	rec.ChatID = generateUUID()

	var entityKind, entityID any
	if rec.Entity != nil {
		entityKind, entityID = rec.Entity.Kind, rec.Entity.ID
	}

	_, err = b.db.Exec(
		`INSERT INTO chat_log (chat_id, session_id, sender, message, entity_kind, entity_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ChatID, rec.SessionID, rec.Sender, rec.Text, entityKind, entityID,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("appending chat record: %w", err)
	}
	return rec.ChatID, nil
}

// ChatSession returns a session's records in created_at order.
func (b *Backend) ChatSession(sessionID string) ([]types.ChatRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(
		`SELECT chat_id, session_id, sender, message, entity_kind, entity_id, created_at
         FROM chat_log WHERE session_id = ? ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var results []types.ChatRecord
	for rows.Next() {
		var r types.ChatRecord
		var entityKind, entityID sql.NullString
		var createdAt string
		if err := rows.Scan(&r.ChatID, &r.SessionID, &r.Sender, &r.Text, &entityKind, &entityID, &createdAt); err != nil {
			return nil, fmt.Errorf("hydrating chat record: %w", err)
		}
		if entityKind.Valid && entityID.Valid {
			r.Entity = &types.Ref{Kind: entityKind.String, ID: entityID.String}
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat records: %w", err)
	}
	return results, nil
}
