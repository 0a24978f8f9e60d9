package database

import (
	"context"
	"fmt"
	"time"

	models "github.com/ERRORIK404/custom_calc/pkg/db_models"
	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

func (h *DB) AddHistoryEntry(ctx context.Context, sessionID string, item structs.HistoryItem) error {
	entry := toHistoryEntry(sessionID, item)
	_, err := h.DB.ExecContext(ctx,
		"INSERT INTO history (id, session_id, expression, result, unit, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ID, entry.SessionID, entry.Expression, entry.Result, entry.Unit, entry.CreatedAt,
	)
	return err
}

func (h *DB) DeleteHistoryEntry(ctx context.Context, sessionID, id string) error {
	res, err := h.DB.ExecContext(ctx,
		"DELETE FROM history WHERE id = ? AND session_id = ?",
		id, sessionID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", locerr.ErrHistoryItemNotFound, id)
	}
	return nil
}

func (h *DB) ClearHistory(ctx context.Context, sessionID string) error {
	_, err := h.DB.ExecContext(ctx, "DELETE FROM history WHERE session_id = ?", sessionID)
	return err
}

// История сессии в порядке добавления
func (h *DB) GetHistory(ctx context.Context, sessionID string) ([]structs.HistoryItem, error) {
	rows, err := h.DB.QueryContext(ctx,
		"SELECT id, session_id, expression, result, unit, created_at FROM history WHERE session_id = ? ORDER BY rowid",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []structs.HistoryItem
	for rows.Next() {
		var entry models.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Expression, &entry.Result, &entry.Unit, &entry.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, fromHistoryEntry(entry))
	}
	return history, rows.Err()
}

func toHistoryEntry(sessionID string, item structs.HistoryItem) models.HistoryEntry {
	return models.HistoryEntry{
		ID:         item.ID,
		SessionID:  sessionID,
		Expression: item.Expression,
		Result:     item.Result,
		Unit:       item.Unit,
		CreatedAt:  item.Timestamp.UnixNano(),
	}
}

func fromHistoryEntry(entry models.HistoryEntry) structs.HistoryItem {
	return structs.HistoryItem{
		ID:         entry.ID,
		Expression: entry.Expression,
		Result:     entry.Result,
		Unit:       entry.Unit,
		Timestamp:  time.Unix(0, entry.CreatedAt),
	}
}
