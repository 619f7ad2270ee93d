package models

type ProposalStatus string

const (
	ProposalStatusDraft      ProposalStatus = "Draft"
	ProposalStatusAccepted   ProposalStatus = "Accepted"
	ProposalStatusFinal      ProposalStatus = "Final"
	ProposalStatusDeferred   ProposalStatus = "Deferred"
	ProposalStatusRejected   ProposalStatus = "Rejected"
	ProposalStatusWithdrawn  ProposalStatus = "Withdrawn"
	ProposalStatusSuperseded ProposalStatus = "Superseded"
	ProposalStatusActive     ProposalStatus = "Active"
)

// AllProposalStatuses lists every status in lifecycle order.
var AllProposalStatuses = []ProposalStatus{
	ProposalStatusDraft,
	ProposalStatusAccepted,
	ProposalStatusFinal,
	ProposalStatusDeferred,
	ProposalStatusRejected,
	ProposalStatusWithdrawn,
	ProposalStatusSuperseded,
	ProposalStatusActive,
}

// IsValid reports whether s is a known status.
func (s ProposalStatus) IsValid() bool {
	for _, known := range AllProposalStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo returns true if the status can transition to the target status.
//
//	Draft    → Accepted, Rejected, Withdrawn, Deferred, Active
//	Accepted → Final, Superseded
//	Deferred → Draft, Rejected, Withdrawn
//	Final    → Superseded
//	Active   → Superseded
//
// Rejected, Withdrawn and Superseded have no outgoing transitions.
func (s ProposalStatus) CanTransitionTo(target ProposalStatus) bool {
	switch s {
	case ProposalStatusDraft:
		return target == ProposalStatusAccepted || target == ProposalStatusRejected ||
			target == ProposalStatusWithdrawn || target == ProposalStatusDeferred ||
			target == ProposalStatusActive
	case ProposalStatusAccepted:
		return target == ProposalStatusFinal || target == ProposalStatusSuperseded
	case ProposalStatusDeferred:
		return target == ProposalStatusDraft || target == ProposalStatusRejected ||
			target == ProposalStatusWithdrawn
	case ProposalStatusFinal, ProposalStatusActive:
		return target == ProposalStatusSuperseded
	default:
		return false
	}
}

// IsTerminal reports whether normal flow ends at s. Final and Active can
// still be superseded.
func (s ProposalStatus) IsTerminal() bool {
	switch s {
	case ProposalStatusFinal, ProposalStatusRejected, ProposalStatusWithdrawn,
		ProposalStatusSuperseded, ProposalStatusActive:
		return true
	default:
		return false
	}
}

// RequiresResolution reports whether entering s needs a resolution link.
func (s ProposalStatus) RequiresResolution() bool {
	switch s {
	case ProposalStatusAccepted, ProposalStatusRejected, ProposalStatusWithdrawn:
		return true
	default:
		return false
	}
}
