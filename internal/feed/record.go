package feed

// Kind classifies an activity record. The set of upstream event types is
// open-ended; anything unrecognized maps to KindOther rather than being
// dropped.
type Kind string

const (
	KindPush        Kind = "push"
	KindStar        Kind = "star"
	KindFork        Kind = "fork"
	KindIssue       Kind = "issue"
	KindPullRequest Kind = "pull-request"
	KindOther       Kind = "other"
)

// Record is one normalized activity event.
type Record struct {
	Repository string `json:"repository"`
	Kind       Kind   `json:"kind"`
	Timestamp  string `json:"timestamp"`
	Summary    string `json:"summary"`
}

// Snapshot is the ordered record list written to the snapshot file,
// most recent first, exactly as received from upstream.
type Snapshot []Record
