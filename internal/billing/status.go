package billing

import (
	"fmt"
	"regexp"
	"time"
)

// Status represents an invoice lifecycle state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusProforma Status = "proforma"
	StatusIssued   Status = "issued"
)

// RevisionWindow is how long an issued invoice stays editable before it
// becomes legally immutable.
const RevisionWindow = 24 * time.Hour

// allowedTransitions encodes the one-way legal lifecycle. Issued is terminal;
// corrections after that go through the external credit-note process.
var allowedTransitions = map[Status][]Status{
	StatusDraft:    {StatusProforma, StatusIssued},
	StatusProforma: {StatusIssued},
	StatusIssued:   {},
}

// statusPrefixes maps each status to its document number prefix.
var statusPrefixes = map[Status]string{
	StatusDraft:    "DFT",
	StatusProforma: "PFM",
	StatusIssued:   "INV",
}

// numberShape matches PREFIX-YYYYMM-NNNN document numbers.
var numberShape = regexp.MustCompile(`^[A-Z]+-(\d{6}-\d{4})$`)

// IsValid reports whether s is one of the three lifecycle states.
func (s Status) IsValid() bool {
	_, ok := statusPrefixes[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusIssued
}

func (s Status) String() string {
	return string(s)
}

// IsValidTransition reports whether moving from one status to another is
// legal. Self-transitions are always allowed as a no-op.
func IsValidTransition(from, to Status) bool {
	if from == to {
		return from.IsValid()
	}
	for _, target := range allowedTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// NeedsConfirmation reports whether the transition requires explicit user
// confirmation before proceeding. Issuing is irreversible and triggers
// inventory and revenue side effects downstream.
func NeedsConfirmation(from, to Status) bool {
	return to == StatusIssued && from != StatusIssued
}

// CanEdit reports whether an invoice in the given status accepts edits.
func CanEdit(status Status) bool {
	return status != StatusIssued
}

// ComputeLockState determines whether an invoice is legally immutable. Only
// the originally persisted status counts: a new, unsaved invoice is never
// locked no matter what its in-progress status field says. Issued invoices
// without an issue timestamp are legacy data and stay permanently locked.
func ComputeLockState(isPersisted bool, originalStatus Status, issuedAt *time.Time, now time.Time) bool {
	if !isPersisted {
		return false
	}
	if originalStatus != StatusIssued {
		return false
	}
	if issuedAt == nil {
		return true
	}
	return now.Sub(*issuedAt) >= RevisionWindow
}

// ComputeRevisionMode reports whether an issued invoice is inside its
// post-issue revision window. Mutually exclusive with ComputeLockState.
func ComputeRevisionMode(isPersisted bool, originalStatus Status, issuedAt *time.Time, now time.Time) bool {
	if !isPersisted || originalStatus != StatusIssued || issuedAt == nil {
		return false
	}
	return now.Sub(*issuedAt) < RevisionWindow
}

// WithStatusPrefix relabels a document number with the prefix for the given
// status, preserving the YYYYMM-NNNN suffix when the input already matches
// that shape. Sequence allocation is server-side; a fresh number always
// starts at 0001.
func WithStatusPrefix(number string, status Status) string {
	return WithStatusPrefixAt(number, status, time.Now())
}

// WithStatusPrefixAt is WithStatusPrefix with an explicit clock.
func WithStatusPrefixAt(number string, status Status, now time.Time) string {
	prefix, ok := statusPrefixes[status]
	if !ok {
		prefix = statusPrefixes[StatusDraft]
	}
	if m := numberShape.FindStringSubmatch(number); m != nil {
		return prefix + "-" + m[1]
	}
	return fmt.Sprintf("%s-%s-0001", prefix, now.Format("200601"))
}

// Transition atomically produces the new {number, status} pair for a status
// change, so an invoice can never momentarily carry a mismatched
// prefix/status combination. Illegal transitions return an error and leave
// the caller's record untouched.
func Transition(number string, from, to Status) (string, Status, error) {
	if !to.IsValid() {
		return "", "", fmt.Errorf("unknown invoice status %q", to)
	}
	if !IsValidTransition(from, to) {
		return "", "", fmt.Errorf("illegal status transition %s -> %s", from, to)
	}
	return WithStatusPrefix(number, to), to, nil
}
