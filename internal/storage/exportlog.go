/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"fmt"
	"time"
)

// ExportRecord is one row of the export log.
type ExportRecord struct {
	ID       int64     `json:"id"`
	At       time.Time `json:"at"`
	Format   string    `json:"format"`
	Source   string    `json:"source"`
	Exported int       `json:"exported"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Target   string    `json:"target,omitempty"`
}

// RecordExport appends an entry to the workspace export log.
func RecordExport(ctx context.Context, root string, r ExportRecord) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err = db.ExecContext(ctx, `INSERT INTO export_log(ts, format, source, exported, skipped, failed, target) VALUES(?,?,?,?,?,?,?)`,
		r.At.UTC().Format(time.RFC3339Nano), r.Format, r.Source, r.Exported, r.Skipped, r.Failed, r.Target)
	if err != nil {
		return fmt.Errorf("insert export log: %w", err)
	}
	return nil
}

// ListExports returns the most recent export log entries, newest first.
func ListExports(ctx context.Context, root string, limit int) ([]ExportRecord, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT id, ts, format, source, exported, skipped, failed, COALESCE(target,'') FROM export_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("export log query: %w", err)
	}
	defer rows.Close()
	var out []ExportRecord
	for rows.Next() {
		var r ExportRecord
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Format, &r.Source, &r.Exported, &r.Skipped, &r.Failed, &r.Target); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.At, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}
