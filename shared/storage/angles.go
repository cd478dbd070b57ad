package storage

import (
	"context"
	"database/sql"
	"fmt"

	"persona-stack/internal/models"
)

// ReplaceSalesAngles swaps the source's angles for the new set in one
// transaction. Positions follow slice order starting at 1.
func (s *Store) ReplaceSalesAngles(ctx context.Context, ref models.SourceRef, angles []*models.SalesAngle) error {
	if !ref.Type.Valid() {
		return fmt.Errorf("source type %q: %w", ref.Type, models.ErrInvalidSource)
	}
	if len(angles) == 0 {
		return fmt.Errorf("refusing to replace sales angles of %s with an empty set", ref)
	}

	now := s.now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM sales_angles WHERE source_type = ? AND source_id = ?`,
			string(ref.Type), ref.ID); err != nil {
			return fmt.Errorf("delete sales angles of %s: %w", ref, err)
		}

		for i, a := range angles {
			err := s.queryRow(ctx, tx, `
				INSERT INTO sales_angles (source_type, source_id, title, description, copy_example,
					focus, content_type, position, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id`,
				string(ref.Type), ref.ID, a.Title, a.Description, a.CopyExample,
				string(a.Focus), string(a.ContentType), i+1, formatTime(now),
			).Scan(&a.ID)
			if err != nil {
				return fmt.Errorf("insert sales angle %q: %w", a.Title, err)
			}
			a.Source = ref
			a.Position = i + 1
			a.CreatedAt = now
		}
		return nil
	})
}

func (s *Store) ListSalesAngles(ctx context.Context, ref models.SourceRef) ([]*models.SalesAngle, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT id, source_type, source_id, title, description, copy_example, focus, content_type, position, created_at
		FROM sales_angles WHERE source_type = ? AND source_id = ? ORDER BY position, id`,
		string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("list sales angles of %s: %w", ref, err)
	}
	defer rows.Close()

	var angles []*models.SalesAngle
	for rows.Next() {
		var (
			a                                   models.SalesAngle
			sourceType, focus, kind, createdAt string
		)
		err := rows.Scan(&a.ID, &sourceType, &a.Source.ID, &a.Title, &a.Description, &a.CopyExample,
			&focus, &kind, &a.Position, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan sales angle: %w", err)
		}
		a.Source.Type = models.SourceType(sourceType)
		a.Focus = models.AngleFocus(focus)
		a.ContentType = models.AngleContentType(kind)
		a.CreatedAt = parseTime(createdAt)
		angles = append(angles, &a)
	}
	return angles, rows.Err()
}
