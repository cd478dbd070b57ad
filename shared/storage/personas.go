package storage

import (
	"context"
	"database/sql"
	"fmt"

	"persona-stack/internal/models"
)

const personaColumns = `p.id, p.source_type, p.source_id, p.name, p.age_range, p.occupation, p.description,
	p.motivations, p.pain_points, p.dreams, p.objections, p.preferred_channels, p.keywords,
	p.audience_percentage, p.priority_level, p.recommended_strategy, p.behavior, p.items_analyzed, p.created_at`

// ReplacePersonas deletes the source's personas and inserts the new set in
// one transaction, so readers never observe a source without personas.
func (s *Store) ReplacePersonas(ctx context.Context, ref models.SourceRef, personas []*models.BuyerPersona, itemsAnalyzed int) error {
	if !ref.Type.Valid() {
		return fmt.Errorf("source type %q: %w", ref.Type, models.ErrInvalidSource)
	}
	if len(personas) == 0 {
		return fmt.Errorf("refusing to replace personas of %s with an empty set", ref)
	}

	now := s.now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM buyer_personas WHERE source_type = ? AND source_id = ?`,
			string(ref.Type), ref.ID); err != nil {
			return fmt.Errorf("delete personas of %s: %w", ref, err)
		}

		for _, p := range personas {
			err := s.queryRow(ctx, tx, `
				INSERT INTO buyer_personas (source_type, source_id, name, age_range, occupation, description,
					motivations, pain_points, dreams, objections, preferred_channels, keywords,
					audience_percentage, priority_level, recommended_strategy, behavior, items_analyzed, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id`,
				string(ref.Type), ref.ID, p.Name, p.AgeRange, p.Occupation, p.Description,
				encodeList(p.Motivations), encodeList(p.PainPoints), encodeList(p.Dreams),
				encodeList(p.Objections), encodeList(p.PreferredChannels), encodeList(p.Keywords),
				p.AudiencePercentage, string(p.PriorityLevel), p.RecommendedStrategy, p.Behavior, itemsAnalyzed,
				formatTime(now),
			).Scan(&p.ID)
			if err != nil {
				return fmt.Errorf("insert persona %q: %w", p.Name, err)
			}
			p.Source = ref
			p.ItemsAnalyzed = itemsAnalyzed
			p.CreatedAt = now
		}
		return nil
	})
}

func (s *Store) ListPersonas(ctx context.Context, ref models.SourceRef) ([]*models.BuyerPersona, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+personaColumns+`, '' FROM buyer_personas p
		WHERE p.source_type = ? AND p.source_id = ? ORDER BY p.id`, string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("list personas of %s: %w", ref, err)
	}
	return collectPersonas(rows)
}

// ListProductPersonas returns the personas of every video linked to the
// product followed by those of every linked survey, each carrying its source
// title.
func (s *Store) ListProductPersonas(ctx context.Context, productID int64) ([]*models.BuyerPersona, error) {
	var all []*models.BuyerPersona
	for _, q := range []struct {
		table string
		kind  models.SourceType
	}{
		{"videos", models.SourceYouTube},
		{"surveys", models.SourceSurvey},
	} {
		rows, err := s.query(ctx, s.db, `SELECT `+personaColumns+`, src.title
			FROM buyer_personas p
			JOIN `+q.table+` src ON src.id = p.source_id
			WHERE p.source_type = ? AND src.product_id = ?
			ORDER BY src.id, p.id`, string(q.kind), productID)
		if err != nil {
			return nil, fmt.Errorf("list %s personas of product %d: %w", q.kind, productID, err)
		}
		personas, err := collectPersonas(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, personas...)
	}
	return all, nil
}

// ListStaleProducts returns products with personas whose snapshot is missing
// or older than models.StaleAfter.
func (s *Store) ListStaleProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var stale []*models.Product
	for _, p := range products {
		if !p.IsConsolidationStale(now) {
			continue
		}
		personas, err := s.ListProductPersonas(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if len(personas) > 0 {
			stale = append(stale, p)
		}
	}
	return stale, nil
}

func collectPersonas(rows *sql.Rows) ([]*models.BuyerPersona, error) {
	defer rows.Close()

	var personas []*models.BuyerPersona
	for rows.Next() {
		var (
			p                               models.BuyerPersona
			sourceType, priority, createdAt string
			motivations, painPoints, dreams string
			objections, channels, keywords  string
		)
		err := rows.Scan(&p.ID, &sourceType, &p.Source.ID, &p.Name, &p.AgeRange, &p.Occupation, &p.Description,
			&motivations, &painPoints, &dreams, &objections, &channels, &keywords,
			&p.AudiencePercentage, &priority, &p.RecommendedStrategy, &p.Behavior, &p.ItemsAnalyzed, &createdAt, &p.SourceName)
		if err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		p.Source.Type = models.SourceType(sourceType)
		p.PriorityLevel = models.Priority(priority)
		p.Motivations = decodeList(motivations)
		p.PainPoints = decodeList(painPoints)
		p.Dreams = decodeList(dreams)
		p.Objections = decodeList(objections)
		p.PreferredChannels = decodeList(channels)
		p.Keywords = decodeList(keywords)
		p.CreatedAt = parseTime(createdAt)
		personas = append(personas, &p)
	}
	return personas, rows.Err()
}
