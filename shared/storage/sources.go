package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"persona-stack/internal/models"
)

const videoColumns = `id, video_id, title, description, channel_title, url, duration, duration_seconds,
	view_count, like_count, comment_count, published_at, product_id, is_analyzing, created_at`

const surveyColumns = `id, spreadsheet_id, title, description, form_url, responses_count,
	product_id, is_analyzing, created_at`

// UpsertVideo inserts or refreshes a video keyed by its YouTube ID. An
// existing product link is kept when v.ProductID is nil.
func (s *Store) UpsertVideo(ctx context.Context, v *models.Video) error {
	if v.VideoID == "" {
		return fmt.Errorf("video ID is required")
	}
	now := s.now()
	err := s.queryRow(ctx, s.db, `
		INSERT INTO videos (video_id, title, description, channel_title, url, duration, duration_seconds,
			view_count, like_count, comment_count, published_at, product_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			channel_title = excluded.channel_title,
			url = excluded.url,
			duration = excluded.duration,
			duration_seconds = excluded.duration_seconds,
			view_count = excluded.view_count,
			like_count = excluded.like_count,
			comment_count = excluded.comment_count,
			published_at = excluded.published_at,
			product_id = COALESCE(excluded.product_id, videos.product_id)
		RETURNING id`,
		v.VideoID, v.Title, v.Description, v.ChannelTitle, v.URL, v.Duration, v.DurationSeconds,
		v.ViewCount, v.LikeCount, v.CommentCount, nullTime(v.PublishedAt), nullInt64(v.ProductID),
		formatTime(now),
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.VideoID, err)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	return nil
}

func (s *Store) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	v, err := scanVideo(s.queryRow(ctx, s.db, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("video %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get video %d: %w", id, err)
	}
	return v, nil
}

func (s *Store) ListVideos(ctx context.Context) ([]*models.Video, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+videoColumns+` FROM videos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// UpsertSurvey inserts or refreshes a survey keyed by its spreadsheet ID.
// Empty description and form URL keep the stored values.
func (s *Store) UpsertSurvey(ctx context.Context, sv *models.Survey) error {
	if sv.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required")
	}
	now := s.now()
	err := s.queryRow(ctx, s.db, `
		INSERT INTO surveys (spreadsheet_id, title, description, form_url, responses_count, product_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (spreadsheet_id) DO UPDATE SET
			title = excluded.title,
			description = COALESCE(NULLIF(excluded.description, ''), surveys.description),
			form_url = COALESCE(NULLIF(excluded.form_url, ''), surveys.form_url),
			responses_count = excluded.responses_count,
			product_id = COALESCE(excluded.product_id, surveys.product_id)
		RETURNING id`,
		sv.SpreadsheetID, sv.Title, sv.Description, sv.FormURL, sv.ResponsesCount,
		nullInt64(sv.ProductID), formatTime(now),
	).Scan(&sv.ID)
	if err != nil {
		return fmt.Errorf("upsert survey %s: %w", sv.SpreadsheetID, err)
	}
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = now
	}
	return nil
}

func (s *Store) GetSurvey(ctx context.Context, id int64) (*models.Survey, error) {
	sv, err := scanSurvey(s.queryRow(ctx, s.db, `SELECT `+surveyColumns+` FROM surveys WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("survey %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get survey %d: %w", id, err)
	}
	return sv, nil
}

func (s *Store) ListSurveys(ctx context.Context) ([]*models.Survey, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+surveyColumns+` FROM surveys ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	defer rows.Close()

	var surveys []*models.Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		surveys = append(surveys, sv)
	}
	return surveys, rows.Err()
}

// GetSource resolves a reference to its video or survey.
func (s *Store) GetSource(ctx context.Context, ref models.SourceRef) (models.Source, error) {
	switch ref.Type {
	case models.SourceYouTube:
		return s.GetVideo(ctx, ref.ID)
	case models.SourceSurvey:
		return s.GetSurvey(ctx, ref.ID)
	default:
		return nil, fmt.Errorf("source type %q: %w", ref.Type, models.ErrInvalidSource)
	}
}

func sourceTable(t models.SourceType) (string, error) {
	switch t {
	case models.SourceYouTube:
		return "videos", nil
	case models.SourceSurvey:
		return "surveys", nil
	default:
		return "", fmt.Errorf("source type %q: %w", t, models.ErrInvalidSource)
	}
}

// SetAnalyzing flags a source while a batch is running over it.
func (s *Store) SetAnalyzing(ctx context.Context, ref models.SourceRef, analyzing bool) error {
	table, err := sourceTable(ref.Type)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, s.db, `UPDATE `+table+` SET is_analyzing = ? WHERE id = ?`, boolInt(analyzing), ref.ID)
	if err != nil {
		return fmt.Errorf("set analyzing on %s: %w", ref, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return nil
}

// ResetAnalyzing clears stuck flags left by an interrupted batch, for one
// source or for all of them when ref is nil.
func (s *Store) ResetAnalyzing(ctx context.Context, ref *models.SourceRef) (int64, error) {
	if ref != nil {
		table, err := sourceTable(ref.Type)
		if err != nil {
			return 0, err
		}
		res, err := s.exec(ctx, s.db, `UPDATE `+table+` SET is_analyzing = 0 WHERE id = ? AND is_analyzing = 1`, ref.ID)
		if err != nil {
			return 0, fmt.Errorf("reset analyzing on %s: %w", ref, err)
		}
		return res.RowsAffected()
	}

	var total int64
	for _, table := range []string{"videos", "surveys"} {
		res, err := s.exec(ctx, s.db, `UPDATE `+table+` SET is_analyzing = 0 WHERE is_analyzing = 1`)
		if err != nil {
			return total, fmt.Errorf("reset analyzing on %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// ListSourcesWithPending returns every source that still has unanalyzed
// items longer than minLength characters.
func (s *Store) ListSourcesWithPending(ctx context.Context, minLength int) ([]models.SourceRef, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT DISTINCT c.source_type, c.source_id
		FROM content_items c
		LEFT JOIN analyses a ON a.content_item_id = c.id
		WHERE a.id IS NULL AND LENGTH(c.combined_text) > ?
		ORDER BY c.source_type DESC, c.source_id`, minLength)
	if err != nil {
		return nil, fmt.Errorf("list pending sources: %w", err)
	}
	defer rows.Close()

	var refs []models.SourceRef
	for rows.Next() {
		var ref models.SourceRef
		if err := rows.Scan(&ref.Type, &ref.ID); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var (
		v           models.Video
		publishedAt sql.NullString
		productID   sql.NullInt64
		analyzing   int
		createdAt   string
	)
	err := row.Scan(&v.ID, &v.VideoID, &v.Title, &v.Description, &v.ChannelTitle, &v.URL, &v.Duration,
		&v.DurationSeconds, &v.ViewCount, &v.LikeCount, &v.CommentCount, &publishedAt, &productID,
		&analyzing, &createdAt)
	if err != nil {
		return nil, err
	}
	v.PublishedAt = parseNullTime(publishedAt)
	v.ProductID = int64Ptr(productID)
	v.IsAnalyzing = analyzing != 0
	v.CreatedAt = parseTime(createdAt)
	return &v, nil
}

func scanSurvey(row rowScanner) (*models.Survey, error) {
	var (
		sv        models.Survey
		productID sql.NullInt64
		analyzing int
		createdAt string
	)
	err := row.Scan(&sv.ID, &sv.SpreadsheetID, &sv.Title, &sv.Description, &sv.FormURL,
		&sv.ResponsesCount, &productID, &analyzing, &createdAt)
	if err != nil {
		return nil, err
	}
	sv.ProductID = int64Ptr(productID)
	sv.IsAnalyzing = analyzing != 0
	sv.CreatedAt = parseTime(createdAt)
	return &sv, nil
}
