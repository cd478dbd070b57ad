package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"persona-stack/internal/models"
)

func (s *Store) SaveCopyGeneration(ctx context.Context, g *models.CopyGeneration) error {
	variations, err := encodeJSON(g.Variations)
	if err != nil {
		return fmt.Errorf("encode variations: %w", err)
	}
	var personaIndex sql.NullInt64
	if g.PersonaIndex != nil {
		personaIndex = sql.NullInt64{Int64: int64(*g.PersonaIndex), Valid: true}
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}

	err = s.queryRow(ctx, s.db, `
		INSERT INTO copy_generations (product_id, copy_type, name, tone, objective, angle, persona_index,
			variations, character_count, model, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		g.ProductID, string(g.Type), g.Name, g.Tone, g.Objective, g.Angle, personaIndex,
		variations, g.CharacterCount, g.Model, g.TokensUsed, formatTime(g.CreatedAt),
	).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("insert copy generation: %w", err)
	}
	return nil
}

func (s *Store) ListCopyGenerations(ctx context.Context, productID int64) ([]*models.CopyGeneration, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT id, product_id, copy_type, name, tone, objective, angle, persona_index,
			variations, character_count, model, tokens_used, created_at
		FROM copy_generations WHERE product_id = ? ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list copy generations of product %d: %w", productID, err)
	}
	defer rows.Close()

	var out []*models.CopyGeneration
	for rows.Next() {
		var (
			g                    models.CopyGeneration
			copyType, variations string
			createdAt            string
			personaIndex         sql.NullInt64
		)
		err := rows.Scan(&g.ID, &g.ProductID, &copyType, &g.Name, &g.Tone, &g.Objective, &g.Angle,
			&personaIndex, &variations, &g.CharacterCount, &g.Model, &g.TokensUsed, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan copy generation: %w", err)
		}
		g.Type = models.CopyType(copyType)
		if personaIndex.Valid {
			idx := int(personaIndex.Int64)
			g.PersonaIndex = &idx
		}
		if err := json.Unmarshal([]byte(variations), &g.Variations); err != nil {
			return nil, fmt.Errorf("decode variations of copy %d: %w", g.ID, err)
		}
		g.CreatedAt = parseTime(createdAt)
		out = append(out, &g)
	}
	return out, rows.Err()
}
