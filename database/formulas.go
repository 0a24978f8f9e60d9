package database

import (
	"context"
	"encoding/json"
	"fmt"

	models "github.com/ERRORIK404/custom_calc/pkg/db_models"
	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

// SaveFormula вставляет формулу в конец или обновляет ее, не меняя позицию
func (h *DB) SaveFormula(ctx context.Context, sessionID string, formula structs.CustomFormula) error {
	body, err := json.Marshal(formula)
	if err != nil {
		return err
	}
	_, err = h.DB.ExecContext(ctx, `
		INSERT INTO formulas (session_id, id, position, body)
		VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM formulas WHERE session_id = ?), ?)
		ON CONFLICT (session_id, id) DO UPDATE SET body = excluded.body`,
		sessionID, formula.ID, sessionID, string(body),
	)
	return err
}

func (h *DB) DeleteFormula(ctx context.Context, sessionID, id string) error {
	res, err := h.DB.ExecContext(ctx, "DELETE FROM formulas WHERE session_id = ? AND id = ?", sessionID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", locerr.ErrFormulaNotFound, id)
	}
	return nil
}

func (h *DB) GetFormulas(ctx context.Context, sessionID string) ([]structs.CustomFormula, error) {
	rows, err := h.DB.QueryContext(ctx,
		"SELECT session_id, id, position, body FROM formulas WHERE session_id = ? ORDER BY position",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var formulas []structs.CustomFormula
	for rows.Next() {
		var entry models.FormulaEntry
		if err := rows.Scan(&entry.SessionID, &entry.ID, &entry.Position, &entry.Body); err != nil {
			return nil, err
		}
		var formula structs.CustomFormula
		if err := json.Unmarshal([]byte(entry.Body), &formula); err != nil {
			return nil, fmt.Errorf("formula %s: %w", entry.ID, err)
		}
		formulas = append(formulas, formula)
	}
	return formulas, rows.Err()
}
