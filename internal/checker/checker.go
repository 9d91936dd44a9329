// Package checker implements the deduplication decision engine. One
// evaluation fingerprints the submitted image, collects pixel-level and
// semantic matches, merges them into an equivalence class, records the
// submission and derives an authenticity verdict from the accumulated
// submitter set.
package checker

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"

	"github.com/kozaktomas/pose-check/internal/embedding"
	"github.com/kozaktomas/pose-check/internal/phash"
	"github.com/kozaktomas/pose-check/internal/store"
	"github.com/kozaktomas/pose-check/internal/vector"
)

// Embedder obtains a semantic feature vector for raw image bytes.
type Embedder interface {
	Embed(ctx context.Context, imageData []byte) ([]float32, error)
}

// Captioner generates a short description for an image. Optional; a caption
// failure never fails an evaluation.
type Captioner interface {
	Caption(ctx context.Context, imageData []byte) (string, error)
}

// Options holds the decision thresholds and the reference owner identity.
type Options struct {
	DistanceThreshold int     // pHash Hamming distance, strict less-than
	ScoreThreshold    float64 // cosine similarity, strict greater-than
	TopK              int     // neighbors requested from the index
	ReferenceOwnerID  string  // distinguished submitter, excluded from relevant uploaders
	Captioner         Captioner
}

// Checker is the match aggregator. All collaborators are injected at
// construction; Checker itself holds no global state and evaluations may run
// concurrently.
type Checker struct {
	store    store.Store
	index    vector.Index
	embedder Embedder
	opts     Options
}

// New creates a checker. Zero thresholds fall back to the package defaults.
func New(st store.Store, ix vector.Index, emb Embedder, opts Options) *Checker {
	if opts.DistanceThreshold <= 0 {
		opts.DistanceThreshold = phash.DefaultDistanceThreshold
	}
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = vector.DefaultScoreThreshold
	}
	if opts.TopK < vector.DefaultTopK {
		opts.TopK = vector.DefaultTopK
	}
	return &Checker{
		store:    st,
		index:    ix,
		embedder: emb,
		opts:     opts,
	}
}

// Evaluate decides whether the submitted image duplicates a known one,
// records the submission and returns the authenticity verdict. Any
// collaborator failure aborts the whole evaluation; no partial verdict and
// no inconsistent state is left behind.
func (c *Checker) Evaluate(ctx context.Context, imageBytes []byte, submitterID string) (*Verdict, error) {
	if submitterID == "" {
		return nil, ErrNoIdentity
	}

	data, err := normalizePayload(imageBytes)
	if err != nil {
		return nil, err
	}

	fp, err := phash.Compute(data)
	if err != nil {
		return nil, err
	}

	images, err := c.store.ListImages(ctx)
	if err != nil {
		return nil, adapterErr("listing images", err)
	}

	known := make(map[int64]struct{}, len(images))
	distances := make(map[int64]int)
	var setA []int64
	for _, img := range images {
		known[img.ID] = struct{}{}
		d, err := phash.Distance(fp, phash.Fingerprint(img.PHash))
		if err != nil {
			// Stored fingerprints all come from the same codec
			// configuration; a mismatch is a programming error.
			return nil, fmt.Errorf("comparing against image %d: %w", img.ID, err)
		}
		if d < c.opts.DistanceThreshold {
			setA = append(setA, img.ID)
			distances[img.ID] = d
		}
	}

	emb, err := c.embedder.Embed(ctx, data)
	if err != nil {
		return nil, adapterErr("computing embedding", err)
	}

	neighbors, err := c.index.Query(ctx, emb, c.opts.TopK)
	if err != nil {
		return nil, adapterErr("querying similarity index", err)
	}

	scores := make(map[int64]float64)
	var setB []int64
	for _, n := range neighbors {
		if n.Score <= c.opts.ScoreThreshold {
			continue
		}
		id, err := strconv.ParseInt(n.ID, 10, 64)
		if err != nil {
			log.Printf("similarity index returned non-numeric id %q, skipping", n.ID)
			continue
		}
		// The relational store is the system of record for identities; an
		// index entry without an image record is ignored.
		if _, ok := known[id]; !ok {
			continue
		}
		setB = append(setB, id)
		scores[id] = n.Score
	}

	// Equivalence class: union in A-then-B discovery order. The first
	// element becomes the primary; members are never merged into one
	// record, only aggregated per evaluation.
	class := unionOrdered(setA, setB)

	var primary int64
	createdNew := false
	if len(class) == 0 {
		img, err := c.store.CreateImage(ctx, string(fp), func(id int64) error {
			return c.index.Upsert(ctx, strconv.FormatInt(id, 10), emb, map[string]string{
				"phash": string(fp),
			})
		})
		if err != nil {
			return nil, adapterErr("creating image", err)
		}
		primary = img.ID
		createdNew = true
		class = []int64{primary}
	} else {
		primary = class[0]
	}

	// The scan goes in before the submitter set is recomputed, so the
	// caller is always part of its own aggregate.
	if _, err := c.store.RecordScan(ctx, primary, submitterID); err != nil {
		return nil, adapterErr("recording scan", err)
	}

	raw, err := c.store.SubmittersFor(ctx, class)
	if err != nil {
		return nil, adapterErr("aggregating submitters", err)
	}
	submitters := dedupOrdered(raw)

	status, isReal, uploader := deriveVerdict(submitters, submitterID, c.opts.ReferenceOwnerID)

	details := &Details{
		MatchID:    primary,
		UploaderID: uploader,
	}
	if d, ok := distances[primary]; ok {
		details.Distance = &d
	}
	if s, ok := scores[primary]; ok {
		details.Score = &s
	}
	if createdNew {
		details.Caption = c.captionNewImage(ctx, primary, data)
	}

	return &Verdict{
		Status:  status,
		IsReal:  isReal,
		ID:      strconv.FormatInt(primary, 10),
		Details: details,
	}, nil
}

// captionNewImage generates and stores a caption for a freshly created
// image. Best-effort: failures are logged, never propagated.
func (c *Checker) captionNewImage(ctx context.Context, id int64, data []byte) string {
	if c.opts.Captioner == nil {
		return ""
	}
	caption, err := c.opts.Captioner.Caption(ctx, data)
	if err != nil {
		log.Printf("captioning image %d failed: %v", id, err)
		return ""
	}
	if err := c.store.SetImageCaption(ctx, id, caption); err != nil {
		log.Printf("storing caption for image %d failed: %v", id, err)
	}
	return caption
}

var dataURIPrefix = []byte("data:")

// normalizePayload strips an optional data:image/<type>;base64, prefix and
// decodes the remainder. Raw bytes pass through untouched.
func normalizePayload(imageBytes []byte) ([]byte, error) {
	if !bytes.HasPrefix(imageBytes, dataURIPrefix) {
		return imageBytes, nil
	}
	idx := bytes.Index(imageBytes, []byte(";base64,"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: data URI without base64 payload", phash.ErrDecode)
	}
	payload := imageBytes[idx+len(";base64,"):]
	decoded, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", phash.ErrDecode, err)
	}
	return decoded, nil
}

// unionOrdered merges two id sequences preserving first-occurrence order.
func unionOrdered(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, ids := range [][]int64{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// dedupOrdered removes duplicates preserving first-occurrence order.
func dedupOrdered(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Embedder is satisfied by the embedding client.
var _ Embedder = (*embedding.Client)(nil)
