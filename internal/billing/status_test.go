package billing

import (
	"testing"
	"time"
)

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusDraft, true},
		{StatusProforma, true},
		{StatusIssued, true},
		{Status("cancelled"), false},
		{Status(""), false},
		{Status("DRAFT"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.expected {
				t.Errorf("Status(%q).IsValid() = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to Status
		expected bool
	}{
		{"draft to proforma", StatusDraft, StatusProforma, true},
		{"draft to issued", StatusDraft, StatusIssued, true},
		{"proforma to issued", StatusProforma, StatusIssued, true},
		{"proforma to draft", StatusProforma, StatusDraft, false},
		{"issued to draft", StatusIssued, StatusDraft, false},
		{"issued to proforma", StatusIssued, StatusProforma, false},
		{"draft self", StatusDraft, StatusDraft, true},
		{"proforma self", StatusProforma, StatusProforma, true},
		{"issued self", StatusIssued, StatusIssued, true},
		{"unknown from", Status("void"), StatusDraft, false},
		{"unknown self", Status("void"), Status("void"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestNeedsConfirmation(t *testing.T) {
	tests := []struct {
		from, to Status
		expected bool
	}{
		{StatusDraft, StatusIssued, true},
		{StatusProforma, StatusIssued, true},
		{StatusIssued, StatusIssued, false},
		{StatusDraft, StatusProforma, false},
		{StatusDraft, StatusDraft, false},
	}

	for _, tt := range tests {
		if got := NeedsConfirmation(tt.from, tt.to); got != tt.expected {
			t.Errorf("NeedsConfirmation(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
		}
	}
}

func TestCanEdit(t *testing.T) {
	if !CanEdit(StatusDraft) || !CanEdit(StatusProforma) {
		t.Error("draft and proforma invoices must be editable")
	}
	if CanEdit(StatusIssued) {
		t.Error("issued invoices must not be editable")
	}
}

func TestComputeLockState(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fiveHoursAgo := now.Add(-5 * time.Hour)
	dayAndHourAgo := now.Add(-25 * time.Hour)

	tests := []struct {
		name           string
		isPersisted    bool
		originalStatus Status
		issuedAt       *time.Time
		expected       bool
	}{
		{"unsaved invoice never locked", false, StatusIssued, &dayAndHourAgo, false},
		{"draft never locked", true, StatusDraft, nil, false},
		{"proforma never locked", true, StatusProforma, nil, false},
		{"legacy issued without timestamp", true, StatusIssued, nil, true},
		{"issued 25h ago", true, StatusIssued, &dayAndHourAgo, true},
		{"issued 5h ago still in window", true, StatusIssued, &fiveHoursAgo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLockState(tt.isPersisted, tt.originalStatus, tt.issuedAt, now)
			if got != tt.expected {
				t.Errorf("ComputeLockState() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestComputeLockState_Monotonic(t *testing.T) {
	issuedAt := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	lockedAt := issuedAt.Add(RevisionWindow)

	if !ComputeLockState(true, StatusIssued, &issuedAt, lockedAt) {
		t.Fatal("expected lock exactly at window boundary")
	}
	for _, later := range []time.Duration{time.Minute, time.Hour, 30 * 24 * time.Hour} {
		if !ComputeLockState(true, StatusIssued, &issuedAt, lockedAt.Add(later)) {
			t.Errorf("lock released %s after boundary", later)
		}
	}
}

func TestComputeRevisionMode(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fiveHoursAgo := now.Add(-5 * time.Hour)
	dayAndHourAgo := now.Add(-25 * time.Hour)

	if !ComputeRevisionMode(true, StatusIssued, &fiveHoursAgo, now) {
		t.Error("expected revision mode 5h after issue")
	}
	if ComputeRevisionMode(true, StatusIssued, &dayAndHourAgo, now) {
		t.Error("expected no revision mode 25h after issue")
	}
	if ComputeRevisionMode(false, StatusIssued, &fiveHoursAgo, now) {
		t.Error("unsaved invoice cannot be in revision mode")
	}
	if ComputeRevisionMode(true, StatusIssued, nil, now) {
		t.Error("legacy issued invoice cannot be in revision mode")
	}
}

func TestLockAndRevisionMutuallyExclusive(t *testing.T) {
	issuedAt := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{0, time.Hour, 23 * time.Hour, 24 * time.Hour, 48 * time.Hour} {
		now := issuedAt.Add(offset)
		locked := ComputeLockState(true, StatusIssued, &issuedAt, now)
		revision := ComputeRevisionMode(true, StatusIssued, &issuedAt, now)
		if locked && revision {
			t.Errorf("offset %s: locked and revision mode both true", offset)
		}
		if !locked && !revision {
			t.Errorf("offset %s: persisted issued invoice neither locked nor in revision", offset)
		}
	}
}

func TestWithStatusPrefixAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		number   string
		status   Status
		expected string
	}{
		{"relabel draft to issued", "DFT-202503-0042", StatusIssued, "INV-202503-0042"},
		{"relabel issued to issued", "INV-202503-0042", StatusIssued, "INV-202503-0042"},
		{"relabel draft to proforma", "DFT-202502-0007", StatusProforma, "PFM-202502-0007"},
		{"fresh number for empty input", "", StatusDraft, "DFT-202503-0001"},
		{"fresh number for malformed input", "42", StatusIssued, "INV-202503-0001"},
		{"fresh number for wrong suffix shape", "INV-25-001", StatusProforma, "PFM-202503-0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithStatusPrefixAt(tt.number, tt.status, now); got != tt.expected {
				t.Errorf("WithStatusPrefixAt(%q, %s) = %q, want %q", tt.number, tt.status, got, tt.expected)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	number, status, err := Transition("DFT-202503-0042", StatusDraft, StatusIssued)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if status != StatusIssued {
		t.Errorf("status = %s, want issued", status)
	}
	if number != "INV-202503-0042" {
		t.Errorf("number = %q, want INV-202503-0042", number)
	}
}

func TestTransition_Illegal(t *testing.T) {
	if _, _, err := Transition("INV-202503-0042", StatusIssued, StatusDraft); err == nil {
		t.Error("expected error for issued -> draft")
	}
	if _, _, err := Transition("DFT-202503-0042", StatusDraft, Status("cancelled")); err == nil {
		t.Error("expected error for unknown target status")
	}
}
