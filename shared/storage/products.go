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

const productColumns = `id, name, description, target_audience, pain_points, key_benefits,
	value_proposition, consolidation, last_consolidated_at, created_at, updated_at`

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	now := s.now()
	err := s.queryRow(ctx, s.db, `
		INSERT INTO products (name, description, target_audience, pain_points, key_benefits,
			value_proposition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		p.Name, p.Description, p.TargetAudience, p.PainPoints, p.KeyBenefits,
		p.ValueProposition, formatTime(now), formatTime(now),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row := s.queryRow(ctx, s.db, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*models.Product, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SaveConsolidation overwrites the product's snapshot in one statement.
func (s *Store) SaveConsolidation(ctx context.Context, productID int64, snap models.ConsolidatedProduct) error {
	if snap.LastConsolidatedAt == nil {
		return fmt.Errorf("consolidation timestamp is required")
	}
	payload, err := encodeJSON(snap)
	if err != nil {
		return fmt.Errorf("encode consolidation: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `
			UPDATE products
			SET consolidation = ?, last_consolidated_at = ?, updated_at = ?
			WHERE id = ?`,
			payload, formatTime(*snap.LastConsolidatedAt), formatTime(s.now()), productID)
		if err != nil {
			return fmt.Errorf("update consolidation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p                    models.Product
		consolidation        sql.NullString
		lastConsolidated     sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.TargetAudience, &p.PainPoints,
		&p.KeyBenefits, &p.ValueProposition, &consolidation, &lastConsolidated, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	if consolidation.Valid && consolidation.String != "" {
		if err := json.Unmarshal([]byte(consolidation.String), &p.Consolidated); err != nil {
			return nil, fmt.Errorf("decode consolidation for product %d: %w", p.ID, err)
		}
	}
	if lastConsolidated.Valid {
		ts := parseTime(lastConsolidated.String)
		p.Consolidated.LastConsolidatedAt = &ts
	} else {
		p.Consolidated.LastConsolidatedAt = nil
	}
	return &p, nil
}
