package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"childsubs/internal/database"
)

// metaTable reads and writes key/value rows attached to an owning entity
type metaTable struct {
	db          database.DBTX
	table       string
	ownerColumn string
}

// get returns "" when the key is not set
func (m metaTable) get(ctx context.Context, ownerID int64, key string) (string, error) {
	query := "SELECT meta_value FROM " + m.table + " WHERE " + m.ownerColumn + " = ? AND meta_key = ?"
	var value string
	err := m.db.QueryRowContext(ctx, query, ownerID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s %q: %w", m.table, key, err)
	}
	return value, nil
}

func (m metaTable) set(ctx context.Context, ownerID int64, key, value string) error {
	query := m.db.GetDialect().UpsertMetaQuery(m.table, m.ownerColumn)
	if _, err := m.db.ExecContext(ctx, query, ownerID, key, value); err != nil {
		return fmt.Errorf("failed to set %s %q: %w", m.table, key, err)
	}
	return nil
}

func (m metaTable) all(ctx context.Context, ownerID int64) (map[string]string, error) {
	query := "SELECT meta_key, meta_value FROM " + m.table + " WHERE " + m.ownerColumn + " = ? ORDER BY meta_key"
	rows, err := m.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.table, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", m.table, err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}
