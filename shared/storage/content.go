package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"persona-stack/internal/models"
)

const contentColumns = `c.id, c.external_id, c.source_type, c.source_id, c.author, c.author_channel_id,
	c.raw_text, c.combined_text, c.like_count, c.reply_count, c.published_at, c.replies, c.created_at`

// IngestItem stores item unless its external ID is already present. With
// force, the existing item and its analysis are replaced. The check and the
// write happen in one transaction.
func (s *Store) IngestItem(ctx context.Context, item *models.ContentItem, force bool) (models.IngestOutcome, error) {
	if item.ExternalID == "" {
		return "", fmt.Errorf("external ID is required")
	}
	if !item.Source.Type.Valid() || item.Source.ID == 0 {
		return "", fmt.Errorf("item %s: %w", item.ExternalID, models.ErrInvalidSource)
	}
	if item.CombinedText == "" {
		item.CombinedText = strings.TrimSpace(item.RawText)
	}

	outcome := models.Imported
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var existingID int64
		err := s.queryRow(ctx, tx, `SELECT id FROM content_items WHERE external_id = ?`, item.ExternalID).Scan(&existingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("lookup %s: %w", item.ExternalID, err)
		case !force:
			item.ID = existingID
			outcome = models.Skipped
			return nil
		default:
			if _, err := s.exec(ctx, tx, `DELETE FROM analyses WHERE content_item_id = ?`, existingID); err != nil {
				return fmt.Errorf("delete analysis of %s: %w", item.ExternalID, err)
			}
			if _, err := s.exec(ctx, tx, `DELETE FROM content_items WHERE id = ?`, existingID); err != nil {
				return fmt.Errorf("delete %s: %w", item.ExternalID, err)
			}
		}

		var replies sql.NullString
		if len(item.Replies) > 0 {
			replies = sql.NullString{String: string(item.Replies), Valid: true}
		}
		now := s.now()
		err = s.queryRow(ctx, tx, `
			INSERT INTO content_items (external_id, source_type, source_id, author, author_channel_id,
				raw_text, combined_text, like_count, reply_count, published_at, replies, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			item.ExternalID, string(item.Source.Type), item.Source.ID, item.Author, item.AuthorChannelID,
			item.RawText, item.CombinedText, item.LikeCount, item.ReplyCount, nullTime(item.PublishedAt),
			replies, formatTime(now),
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert %s: %w", item.ExternalID, err)
		}
		item.CreatedAt = now
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *Store) GetContentItem(ctx context.Context, id int64) (*models.ContentItem, error) {
	item, err := scanContentItem(s.queryRow(ctx, s.db, `SELECT `+contentColumns+` FROM content_items c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get content item %d: %w", id, err)
	}
	return item, nil
}

// ListUnanalyzed returns items of a source with no analysis whose combined
// text is longer than minLength characters, oldest first. limit <= 0 means
// no limit.
func (s *Store) ListUnanalyzed(ctx context.Context, ref models.SourceRef, minLength, limit int) ([]*models.ContentItem, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM content_items c
		LEFT JOIN analyses a ON a.content_item_id = c.id
		WHERE c.source_type = ? AND c.source_id = ? AND a.id IS NULL AND LENGTH(c.combined_text) > ?
		ORDER BY c.id`
	args := []any{string(ref.Type), ref.ID, minLength}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unanalyzed for %s: %w", ref, err)
	}
	defer rows.Close()

	var items []*models.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) CountItems(ctx context.Context, ref models.SourceRef) (int, error) {
	var n int
	err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM content_items WHERE source_type = ? AND source_id = ?`,
		string(ref.Type), ref.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items for %s: %w", ref, err)
	}
	return n, nil
}

func (s *Store) HasAnalysis(ctx context.Context, contentItemID int64) (bool, error) {
	var n int
	err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM analyses WHERE content_item_id = ?`, contentItemID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check analysis for item %d: %w", contentItemID, err)
	}
	return n > 0, nil
}

func scanContentItem(row rowScanner) (*models.ContentItem, error) {
	var (
		item        models.ContentItem
		sourceType  string
		publishedAt sql.NullString
		replies     sql.NullString
		createdAt   string
	)
	err := row.Scan(&item.ID, &item.ExternalID, &sourceType, &item.Source.ID, &item.Author,
		&item.AuthorChannelID, &item.RawText, &item.CombinedText, &item.LikeCount, &item.ReplyCount,
		&publishedAt, &replies, &createdAt)
	if err != nil {
		return nil, err
	}
	item.Source.Type = models.SourceType(sourceType)
	item.PublishedAt = parseNullTime(publishedAt)
	if replies.Valid && replies.String != "" {
		item.Replies = json.RawMessage(replies.String)
	}
	item.CreatedAt = parseTime(createdAt)
	return &item, nil
}
