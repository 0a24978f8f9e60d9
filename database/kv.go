package database

import (
	"context"
	"database/sql"
	"errors"

	models "github.com/ERRORIK404/custom_calc/pkg/db_models"
)

// GetValue возвращает nil, если ключа нет
func (h *DB) GetValue(ctx context.Context, sessionID, key string) ([]byte, error) {
	entry := models.KVEntry{SessionID: sessionID, Key: key}
	err := h.DB.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE session_id = ? AND key = ?",
		entry.SessionID, entry.Key,
	).Scan(&entry.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(entry.Value), nil
}

// PutValue перезаписывает значение целиком
func (h *DB) PutValue(ctx context.Context, sessionID, key string, value []byte) error {
	entry := models.KVEntry{SessionID: sessionID, Key: key, Value: string(value)}
	_, err := h.DB.ExecContext(ctx, `
		INSERT INTO kv (session_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value`,
		entry.SessionID, entry.Key, entry.Value,
	)
	return err
}
