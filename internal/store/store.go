// Package store defines the relational record store for images and
// submission events. Records are append-only: no updates, no deletes, no
// compaction.
package store

import (
	"context"
	"time"
)

// Image is a stored image record. Created exactly once when no existing
// image is judged equivalent; never mutated after creation (the caption is a
// supplemental annotation written at most once, after the record exists).
type Image struct {
	ID        int64
	PHash     string
	Caption   string
	CreatedAt time.Time
}

// Scan records that a submitter presented content judged equivalent to an
// image. At most one scan exists per (image, submitter) pair.
type Scan struct {
	ID          int64
	ImageID     int64
	SubmitterID string
	CreatedAt   time.Time
}

// Store provides insert/select access to images and scans. Implementations
// must guarantee read-your-writes within one evaluation: a record inserted
// through the store is visible to immediately following queries on the same
// store.
type Store interface {
	// CreateImage inserts a new image record and returns it with its
	// assigned id. The bind callback runs before the insert commits; if it
	// returns an error the insert is rolled back and no record exists.
	// Used to keep the similarity index and the relational store in
	// lockstep.
	CreateImage(ctx context.Context, phash string, bind func(id int64) error) (*Image, error)

	// GetImage returns an image by id, or nil if not found.
	GetImage(ctx context.Context, id int64) (*Image, error)

	// ListImages returns all image records in creation order.
	ListImages(ctx context.Context) ([]Image, error)

	// RecordScan inserts a scan unless one already exists for the
	// (image, submitter) pair. Atomic insert-or-ignore on the natural key;
	// reports whether a new record was written.
	RecordScan(ctx context.Context, imageID int64, submitterID string) (bool, error)

	// SubmittersFor returns the submitter ids of all scans referencing any
	// of the given images, ordered by submission time (scan id as
	// tiebreak), without deduplication.
	SubmittersFor(ctx context.Context, imageIDs []int64) ([]string, error)

	// SetImageCaption writes the supplemental caption for an image.
	SetImageCaption(ctx context.Context, id int64, caption string) error

	// CountImages returns the total number of image records.
	CountImages(ctx context.Context) (int, error)

	// CountScans returns the total number of scan records.
	CountScans(ctx context.Context) (int, error)
}
