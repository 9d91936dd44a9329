package checker

// Verdict statuses. One per outcome class; the strings are policy, the
// classes are the contract.
const (
	// StatusFake: nobody has seen this image before and the reference owner
	// is not among its submitters.
	StatusFake = "fake"

	// StatusScanned: the reference owner has seen this image and at least
	// one other party submitted it earlier.
	StatusScanned = "scanned"

	// StatusNew: the image is genuine but this submitter is the first
	// relevant uploader.
	StatusNew = "new"
)

// Verdict is the outcome of one evaluation.
type Verdict struct {
	Status  string   `json:"status"`
	IsReal  bool     `json:"isReal"`
	ID      string   `json:"id"`
	Details *Details `json:"details,omitempty"`
}

// Details carries the matched image and the signal that produced the match.
type Details struct {
	MatchID    int64    `json:"matchId"`
	UploaderID string   `json:"uploaderId,omitempty"`
	Distance   *int     `json:"distance,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Caption    string   `json:"caption,omitempty"`
}

// deriveVerdict computes the authenticity verdict from the equivalence
// class's submitter set. Pure function; submitters must be in deterministic
// first-occurrence order (enforced by the caller), since the first relevant
// uploader is reported back.
func deriveVerdict(submitters []string, submitterID, referenceOwner string) (status string, isReal bool, uploader string) {
	refPresent := false
	var relevant []string
	for _, s := range submitters {
		if referenceOwner != "" && s == referenceOwner {
			refPresent = true
			continue
		}
		if s == submitterID {
			continue
		}
		relevant = append(relevant, s)
	}

	switch {
	case !refPresent && len(relevant) == 0:
		return StatusFake, false, ""
	case refPresent && len(relevant) > 0:
		return StatusScanned, true, relevant[0]
	default:
		// Reference owner present but nobody else, or reference owner
		// absent with other submitters: genuine, credited to the caller.
		return StatusNew, true, submitterID
	}
}
