package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/stockboard/internal/model"
)

// RecordActivity appends an entry to the local activity log.
func RecordActivity(ctx context.Context, db *sql.DB, actor, action string, productID *int64, summary string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO activity (actor, action, product_id, summary) VALUES (?, ?, ?, ?)`,
		actor, action, productID, summary,
	)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

// ListActivity returns the most recent activity entries, newest first.
// A limit of 0 returns everything.
func ListActivity(ctx context.Context, db *sql.DB, limit int) ([]model.Activity, error) {
	query := `SELECT id, actor, action, product_id, summary, created_at
	          FROM activity ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []model.Activity
	for rows.Next() {
		var a model.Activity
		var productID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Actor, &a.Action, &productID, &a.Summary, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		if productID.Valid {
			id := productID.Int64
			a.ProductID = &id
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
