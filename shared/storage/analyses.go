package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"persona-stack/internal/models"
)

const analysisColumns = `id, content_item_id, source_type, source_id, category, sentiment, relevance_score,
	is_relevant, keywords, insights, analysis, model, tokens_used, analyzed_at`

// SaveAnalysis inserts rec. An item can be analyzed only once; a second
// record for the same item returns ErrDuplicate.
func (s *Store) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	insights, err := encodeJSON(rec.Insights)
	if err != nil {
		return fmt.Errorf("encode insights: %w", err)
	}
	if rec.AnalyzedAt.IsZero() {
		rec.AnalyzedAt = s.now()
	}

	err = s.queryRow(ctx, s.db, `
		INSERT INTO analyses (content_item_id, source_type, source_id, category, sentiment, relevance_score,
			is_relevant, keywords, insights, analysis, model, tokens_used, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (content_item_id) DO NOTHING
		RETURNING id`,
		rec.ContentItemID, string(rec.Source.Type), rec.Source.ID, string(rec.Category), string(rec.Sentiment),
		rec.RelevanceScore, boolInt(rec.IsRelevant), encodeList(rec.Keywords), insights, rec.Analysis,
		rec.Model, rec.TokensUsed, formatTime(rec.AnalyzedAt),
	).Scan(&rec.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("analysis for item %d: %w", rec.ContentItemID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert analysis for item %d: %w", rec.ContentItemID, err)
	}
	return nil
}

// ListAnalyses returns every analysis of a source in insertion order.
func (s *Store) ListAnalyses(ctx context.Context, ref models.SourceRef) ([]*models.AnalysisRecord, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+analysisColumns+` FROM analyses
		WHERE source_type = ? AND source_id = ? ORDER BY id`, string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("list analyses for %s: %w", ref, err)
	}
	defer rows.Close()

	var records []*models.AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AnalysisFilter narrows FilterAnalyses. Zero values match everything.
type AnalysisFilter struct {
	Category     models.Category
	Sentiment    models.Sentiment
	MinRelevance int
	OnlyRelevant bool
	Limit        int
}

// FilterAnalyses returns the analyses of a source matching f, most relevant
// first.
func (s *Store) FilterAnalyses(ctx context.Context, ref models.SourceRef, f AnalysisFilter) ([]*models.AnalysisRecord, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE source_type = ? AND source_id = ?`
	args := []any{string(ref.Type), ref.ID}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(f.Category))
	}
	if f.Sentiment != "" {
		query += ` AND sentiment = ?`
		args = append(args, string(f.Sentiment))
	}
	if f.MinRelevance > 0 {
		query += ` AND relevance_score >= ?`
		args = append(args, f.MinRelevance)
	}
	if f.OnlyRelevant {
		query += ` AND is_relevant = 1`
	}
	query += ` ORDER BY relevance_score DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter analyses for %s: %w", ref, err)
	}
	defer rows.Close()

	var records []*models.AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) CountAnalyses(ctx context.Context, ref models.SourceRef) (int, error) {
	var n int
	err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM analyses WHERE source_type = ? AND source_id = ?`,
		string(ref.Type), ref.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count analyses for %s: %w", ref, err)
	}
	return n, nil
}

// DeleteAnalyses removes every analysis of a source so it can be re-analyzed.
func (s *Store) DeleteAnalyses(ctx context.Context, ref models.SourceRef) (int64, error) {
	res, err := s.exec(ctx, s.db, `DELETE FROM analyses WHERE source_type = ? AND source_id = ?`,
		string(ref.Type), ref.ID)
	if err != nil {
		return 0, fmt.Errorf("delete analyses for %s: %w", ref, err)
	}
	return res.RowsAffected()
}

// AnalysisStats aggregates the analyses of a source.
func (s *Store) AnalysisStats(ctx context.Context, ref models.SourceRef, minLength int) (*models.AnalysisStats, error) {
	records, err := s.ListAnalyses(ctx, ref)
	if err != nil {
		return nil, err
	}
	totalItems, err := s.CountItems(ctx, ref)
	if err != nil {
		return nil, err
	}
	pending, err := s.ListUnanalyzed(ctx, ref, minLength, 0)
	if err != nil {
		return nil, err
	}

	stats := &models.AnalysisStats{
		Total:        len(records),
		ByCategory:   map[models.Category]int{},
		BySentiment:  map[models.Sentiment]int{},
		TopKeywords:  []models.FieldCount{},
		PendingItems: len(pending),
		TotalItems:   totalItems,
	}

	keywordCounts := map[string]int{}
	var keywordOrder []string
	scoreSum := 0
	for _, r := range records {
		if r.IsRelevant {
			stats.Relevant++
		}
		stats.ByCategory[r.Category]++
		stats.BySentiment[r.Sentiment]++
		stats.TotalTokens += r.TokensUsed
		scoreSum += r.RelevanceScore
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if keywordCounts[kw] == 0 {
				keywordOrder = append(keywordOrder, kw)
			}
			keywordCounts[kw]++
		}
	}
	if len(records) > 0 {
		stats.AverageScore = math.Round(float64(scoreSum)/float64(len(records))*100) / 100
	}

	sort.SliceStable(keywordOrder, func(i, j int) bool {
		return keywordCounts[keywordOrder[i]] > keywordCounts[keywordOrder[j]]
	})
	for i, kw := range keywordOrder {
		if i == 10 {
			break
		}
		stats.TopKeywords = append(stats.TopKeywords, models.FieldCount{Text: kw, Frequency: keywordCounts[kw]})
	}

	return stats, nil
}

func scanAnalysis(row rowScanner) (*models.AnalysisRecord, error) {
	var (
		rec                          models.AnalysisRecord
		sourceType, category, sentim string
		relevant                     int
		keywords, insights, analyzed string
	)
	err := row.Scan(&rec.ID, &rec.ContentItemID, &sourceType, &rec.Source.ID, &category, &sentim,
		&rec.RelevanceScore, &relevant, &keywords, &insights, &rec.Analysis, &rec.Model, &rec.TokensUsed, &analyzed)
	if err != nil {
		return nil, err
	}
	rec.Source.Type = models.SourceType(sourceType)
	rec.Category = models.Category(category)
	rec.Sentiment = models.Sentiment(sentim)
	rec.IsRelevant = relevant != 0
	rec.Keywords = decodeList(keywords)
	if insights != "" {
		if err := json.Unmarshal([]byte(insights), &rec.Insights); err != nil {
			return nil, fmt.Errorf("decode insights of analysis %d: %w", rec.ID, err)
		}
	}
	rec.AnalyzedAt = parseTime(analyzed)
	return &rec, nil
}
