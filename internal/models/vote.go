package models

import "time"

// Vote values.
const (
	Upvote   = 1
	Downvote = -1
)

// Vote is one ledger row. Exactly one of PostID and CommentID is set, and a
// user holds at most one row per target (partial unique indexes).
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PostID    *uint     `gorm:"index;check:chk_votes_single_target,(post_id IS NULL) <> (comment_id IS NULL)" json:"post_id,omitempty"`
	CommentID *uint     `gorm:"index" json:"comment_id,omitempty"`
	Value     int       `gorm:"not null;check:chk_votes_value,value IN (1,-1)" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteTargetKind distinguishes post votes from comment votes.
type VoteTargetKind string

const (
	VoteTargetPost    VoteTargetKind = "post"
	VoteTargetComment VoteTargetKind = "comment"
)

// VoteTarget identifies the post or comment a vote applies to.
type VoteTarget struct {
	Kind VoteTargetKind
	ID   uint
}

// Column returns the votes column referencing this target kind.
func (t VoteTarget) Column() string {
	if t.Kind == VoteTargetComment {
		return "comment_id"
	}
	return "post_id"
}

// VoteAction is the ledger mutation a transition requires.
type VoteAction int

const (
	VoteActionNone VoteAction = iota
	VoteActionInsert
	VoteActionUpdate
	VoteActionDelete
)

func (a VoteAction) String() string {
	switch a {
	case VoteActionInsert:
		return "insert"
	case VoteActionUpdate:
		return "update"
	case VoteActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// VoteTransition describes how one request moves a (user, target) pair.
// Next is 0 when the pair ends with no vote.
type VoteTransition struct {
	Action    VoteAction
	Next      int
	UpDelta   int
	DownDelta int
}

// Transition computes the ledger move for a requested value given the
// current one (0 means no vote). Repeating the current value toggles the
// vote off; the opposite value flips it.
func Transition(current, requested int) VoteTransition {
	switch {
	case requested == 0:
		return VoteTransition{Action: VoteActionNone, Next: current}
	case current == 0:
		return VoteTransition{Action: VoteActionInsert, Next: requested}.withDeltas(0, requested)
	case current == requested:
		return VoteTransition{Action: VoteActionDelete, Next: 0}.withDeltas(current, 0)
	default:
		return VoteTransition{Action: VoteActionUpdate, Next: requested}.withDeltas(current, requested)
	}
}

// RemovalTransition computes the move for an explicit removal. It is a
// no-op when there is nothing to remove.
func RemovalTransition(current int) VoteTransition {
	if current == 0 {
		return VoteTransition{Action: VoteActionNone}
	}
	return Transition(current, current)
}

func (t VoteTransition) withDeltas(from, to int) VoteTransition {
	t.UpDelta = countOf(to, Upvote) - countOf(from, Upvote)
	t.DownDelta = countOf(to, Downvote) - countOf(from, Downvote)
	return t
}

func countOf(value, want int) int {
	if value == want {
		return 1
	}
	return 0
}
