package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

const uniqueViolation = "23505"

// ImageRepository wraps the SQL for the images table.
type ImageRepository struct {
	pool *pgxpool.Pool
}

// NewImageRepository constructs a repository.
func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

const imageColumns = `id, property_id, ordinal, filename, title, description, urls, ai_meta, created_at, updated_at`

// ImageFilenames lists the filenames stored for a property.
func (r *ImageRepository) ImageFilenames(ctx context.Context, propertyID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT filename FROM images WHERE property_id=$1`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("select image filenames: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan image filenames: %w", err)
	}
	return names, nil
}

// CreateImage inserts a new image record.
func (r *ImageRepository) CreateImage(ctx context.Context, img *model.Image) error {
	now := time.Now().UTC()
	if img.CreatedAt.IsZero() {
		img.CreatedAt = now
	}
	if img.UpdatedAt.IsZero() {
		img.UpdatedAt = now
	}
	urls, err := json.Marshal(img.URLs)
	if err != nil {
		return fmt.Errorf("encode image urls: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO images (id, property_id, ordinal, filename, title, description, urls, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, img.ID, img.PropertyID, img.Ordinal, img.Filename, img.Title, img.Description, urls, img.CreatedAt, img.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: image ordinal %d already used for property %s: %w", model.ErrConflict, img.Ordinal, img.PropertyID, err)
		}
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// DeleteImage removes one image record.
func (r *ImageRepository) DeleteImage(ctx context.Context, propertyID, imageID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM images WHERE property_id=$1 AND id=$2`, propertyID, imageID)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
	}
	return nil
}

// GetImage returns one image of a property.
func (r *ImageRepository) GetImage(ctx context.Context, propertyID, imageID string) (*model.Image, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE property_id=$1 AND id=$2`, propertyID, imageID)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("select image: %w", err)
	}
	return img, nil
}

// ListImages returns the property's images ordered by ordinal.
func (r *ImageRepository) ListImages(ctx context.Context, propertyID string) ([]*model.Image, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+imageColumns+` FROM images WHERE property_id=$1 ORDER BY ordinal`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("select images: %w", err)
	}
	defer rows.Close()
	out := []*model.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// UpdateImage applies the non-nil fields of upd.
func (r *ImageRepository) UpdateImage(ctx context.Context, propertyID, imageID string, upd model.ImageUpdate) (*model.Image, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE images
		SET title = COALESCE($1, title),
			description = COALESCE($2, description),
			updated_at = $3
		WHERE property_id=$4 AND id=$5
		RETURNING `+imageColumns,
		upd.Title, upd.Description, time.Now().UTC(), propertyID, imageID)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("update image: %w", err)
	}
	return img, nil
}

// UpdateImageAIMeta replaces the generated copy stored on an image.
func (r *ImageRepository) UpdateImageAIMeta(ctx context.Context, propertyID, imageID string, meta []model.CopyVersion) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode ai meta: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE images SET ai_meta=$1, updated_at=$2 WHERE property_id=$3 AND id=$4
	`, raw, time.Now().UTC(), propertyID, imageID)
	if err != nil {
		return fmt.Errorf("update image ai meta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
	}
	return nil
}

func scanImage(row pgx.Row) (*model.Image, error) {
	var (
		img    model.Image
		urls   []byte
		aiMeta []byte
	)
	if err := row.Scan(&img.ID, &img.PropertyID, &img.Ordinal, &img.Filename, &img.Title, &img.Description,
		&urls, &aiMeta, &img.CreatedAt, &img.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(urls, &img.URLs); err != nil {
		return nil, fmt.Errorf("decode image urls: %w", err)
	}
	if len(aiMeta) > 0 {
		if err := json.Unmarshal(aiMeta, &img.AIMeta); err != nil {
			return nil, fmt.Errorf("decode image ai meta: %w", err)
		}
	}
	return &img, nil
}
