package models

import "testing"

func TestCanTransitionTo(t *testing.T) {
	allowed := map[ProposalStatus][]ProposalStatus{
		ProposalStatusDraft: {
			ProposalStatusAccepted,
			ProposalStatusRejected,
			ProposalStatusWithdrawn,
			ProposalStatusDeferred,
			ProposalStatusActive,
		},
		ProposalStatusAccepted: {ProposalStatusFinal, ProposalStatusSuperseded},
		ProposalStatusDeferred: {ProposalStatusDraft, ProposalStatusRejected, ProposalStatusWithdrawn},
		ProposalStatusFinal:    {ProposalStatusSuperseded},
		ProposalStatusActive:   {ProposalStatusSuperseded},
	}

	for _, from := range AllProposalStatuses {
		want := make(map[ProposalStatus]bool)
		for _, to := range allowed[from] {
			want[to] = true
		}
		for _, to := range AllProposalStatuses {
			if got := from.CanTransitionTo(to); got != want[to] {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want[to], got)
			}
		}
	}
}

func TestRequiresResolution(t *testing.T) {
	for _, s := range AllProposalStatuses {
		want := s == ProposalStatusAccepted || s == ProposalStatusRejected || s == ProposalStatusWithdrawn
		if got := s.RequiresResolution(); got != want {
			t.Errorf("%s: expected %v, got %v", s, want, got)
		}
	}
}

func TestTerminalStatusesHaveNoExitExceptSupersede(t *testing.T) {
	for _, s := range AllProposalStatuses {
		if !s.IsTerminal() {
			continue
		}
		for _, to := range AllProposalStatuses {
			if to != ProposalStatusSuperseded && s.CanTransitionTo(to) {
				t.Errorf("terminal status %s allows %s", s, to)
			}
		}
	}

	if ProposalStatus("Pending").IsValid() {
		t.Error("unknown status reported as valid")
	}
}

func TestParseProposalType(t *testing.T) {
	tests := []struct {
		in   string
		want ProposalType
		ok   bool
	}{
		{"Standards Track", ProposalTypeStandardsTrack, true},
		{"StandardsTrack", ProposalTypeStandardsTrack, true},
		{"Informational", ProposalTypeInformational, true},
		{"Process", ProposalTypeProcess, true},
		{"process", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseProposalType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseProposalType(%q) = %q, %v", tt.in, got, ok)
		}
	}
}
