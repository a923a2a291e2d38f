package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/record"
)

// SaveFocus stores the focused record of a scope. record.None clears it.
func (p *Project) SaveFocus(ctx context.Context, scope focus.Scope, id record.ID) error {
	var err error
	if id == record.None {
		_, err = p.db.ExecContext(ctx, `DELETE FROM focus WHERE scope = ?`, scope.String())
	} else {
		_, err = p.db.ExecContext(ctx, `
			INSERT INTO focus (scope, record_id) VALUES (?, ?)
			ON CONFLICT(scope) DO UPDATE SET record_id = excluded.record_id
		`, scope.String(), int32(id))
	}
	if err != nil {
		return fmt.Errorf("save focus %s: %w", scope, err)
	}
	return nil
}

// LoadFocus returns the stored focus of a scope. ok is false when none was
// saved.
func (p *Project) LoadFocus(ctx context.Context, scope focus.Scope) (id record.ID, ok bool, err error) {
	var v int32
	err = p.db.QueryRowContext(ctx, `SELECT record_id FROM focus WHERE scope = ?`, scope.String()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return record.None, false, nil
	}
	if err != nil {
		return record.None, false, fmt.Errorf("load focus %s: %w", scope, err)
	}
	return record.ID(v), true, nil
}

// SetParam stores a viewer parameter.
func (p *Project) SetParam(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO params (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set param %s: %w", key, err)
	}
	return nil
}

// Param returns a viewer parameter. ok is false when it is not set.
func (p *Project) Param(ctx context.Context, key string) (value string, ok bool, err error) {
	err = p.db.QueryRowContext(ctx, `SELECT value FROM params WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get param %s: %w", key, err)
	}
	return value, true, nil
}

// Params returns every parameter.
func (p *Project) Params(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, value FROM params ORDER BY key COLLATE BINARY`)
	if err != nil {
		return nil, fmt.Errorf("query params: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan param: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
