package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/pose-check/internal/store"
)

// Store is the PostgreSQL-backed record store for images and scans.
type Store struct {
	pool *Pool
}

// NewStore creates a new PostgreSQL record store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// CreateImage inserts a new image record. The bind callback runs inside the
// insert transaction; a bind failure rolls the insert back so no image record
// exists without its side effects.
func (s *Store) CreateImage(ctx context.Context, phash string, bind func(id int64) error) (*store.Image, error) {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var img store.Image
	err = tx.QueryRowContext(ctx, `
		INSERT INTO images (phash)
		VALUES ($1)
		RETURNING id, phash, caption, created_at
	`, phash).Scan(&img.ID, &img.PHash, &img.Caption, &img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}

	if bind != nil {
		if err := bind(img.ID); err != nil {
			return nil, fmt.Errorf("binding image %d: %w", img.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit image insert: %w", err)
	}
	return &img, nil
}

// GetImage returns an image by id, or nil if not found.
func (s *Store) GetImage(ctx context.Context, id int64) (*store.Image, error) {
	var img store.Image
	err := s.pool.QueryRow(ctx, `
		SELECT id, phash, caption, created_at
		FROM images
		WHERE id = $1
	`, id).Scan(&img.ID, &img.PHash, &img.Caption, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query image: %w", err)
	}
	return &img, nil
}

// ListImages returns all image records in creation order.
func (s *Store) ListImages(ctx context.Context) ([]store.Image, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, phash, caption, created_at
		FROM images
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var images []store.Image
	for rows.Next() {
		var img store.Image
		if err := rows.Scan(&img.ID, &img.PHash, &img.Caption, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}

// RecordScan inserts a scan unless one already exists for the pair. The
// ON CONFLICT clause makes the idempotency atomic under concurrent
// submissions of the same (image, submitter).
func (s *Store) RecordScan(ctx context.Context, imageID int64, submitterID string) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		INSERT INTO scans (image_id, submitter_id)
		VALUES ($1, $2)
		ON CONFLICT (image_id, submitter_id) DO NOTHING
	`, imageID, submitterID)
	if err != nil {
		return false, fmt.Errorf("insert scan: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("scan rows affected: %w", err)
	}
	return affected > 0, nil
}

// SubmittersFor returns submitter ids of all scans referencing the given
// images, ordered by submission time with scan id as tiebreak. Duplicates
// are preserved; callers deduplicate in first-occurrence order.
func (s *Store) SubmittersFor(ctx context.Context, imageIDs []int64) ([]string, error) {
	if len(imageIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT submitter_id
		FROM scans
		WHERE image_id = ANY($1)
		ORDER BY created_at, id
	`, pq.Array(imageIDs))
	if err != nil {
		return nil, fmt.Errorf("query submitters: %w", err)
	}
	defer rows.Close()

	var submitters []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan submitter: %w", err)
		}
		submitters = append(submitters, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submitters: %w", err)
	}
	return submitters, nil
}

// SetImageCaption writes the supplemental caption for an image.
func (s *Store) SetImageCaption(ctx context.Context, id int64, caption string) error {
	if _, err := s.pool.Exec(ctx, "UPDATE images SET caption = $2 WHERE id = $1", id, caption); err != nil {
		return fmt.Errorf("set image caption: %w", err)
	}
	return nil
}

// CountImages returns the total number of image records.
func (s *Store) CountImages(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM images").Scan(&count); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}

// CountScans returns the total number of scan records.
func (s *Store) CountScans(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM scans").Scan(&count); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return count, nil
}

// Verify interface compliance.
var _ store.Store = (*Store)(nil)
