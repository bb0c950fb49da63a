// Package repository persists properties and images in PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// PropertyRepository wraps the SQL for the properties table.
type PropertyRepository struct {
	pool *pgxpool.Pool
}

// NewPropertyRepository constructs a repository.
func NewPropertyRepository(pool *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{pool: pool}
}

// UpsertProperty inserts p, or merges its CRM fields into the stored document
// under a row lock.
func (r *PropertyRepository) UpsertProperty(ctx context.Context, p *model.Property) (bool, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	doc, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("encode property: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO properties (id, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, doc, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert property: %w", err)
	}
	created := tag.RowsAffected() == 1

	if !created {
		var raw []byte
		if err := tx.QueryRow(ctx, `SELECT doc FROM properties WHERE id=$1 FOR UPDATE`, p.ID).Scan(&raw); err != nil {
			return false, fmt.Errorf("lock property: %w", err)
		}
		var existing model.Property
		if err := json.Unmarshal(raw, &existing); err != nil {
			return false, fmt.Errorf("decode property: %w", err)
		}
		merged := p.MergeInto(&existing)
		if doc, err = json.Marshal(merged); err != nil {
			return false, fmt.Errorf("encode property: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE properties SET doc=$1, updated_at=$2 WHERE id=$3`, doc, merged.UpdatedAt, p.ID); err != nil {
			return false, fmt.Errorf("update property: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit upsert: %w", err)
	}
	return created, nil
}

// GetProperty returns the stored document for id.
func (r *PropertyRepository) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM properties WHERE id=$1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("property %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("select property: %w", err)
	}
	var p model.Property
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode property: %w", err)
	}
	return &p, nil
}

// UpdatePropertyAIMeta replaces the generated listing copy.
func (r *PropertyRepository) UpdatePropertyAIMeta(ctx context.Context, id string, meta []model.CopyVersion) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode ai meta: %w", err)
	}
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties
		SET doc = jsonb_set(jsonb_set(doc, '{ai_meta}', $1::jsonb), '{updated_at}', to_jsonb($2::timestamptz)),
			updated_at = $2
		WHERE id=$3
	`, raw, now, id)
	if err != nil {
		return fmt.Errorf("update property ai meta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("property %s: %w", id, model.ErrNotFound)
	}
	return nil
}
