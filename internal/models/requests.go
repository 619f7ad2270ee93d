package models

// CreateProposalRequest represents a request to create a new proposal
type CreateProposalRequest struct {
	Title     string   `json:"title" binding:"required"`
	Type      string   `json:"type" binding:"required"`
	Created   string   `json:"created"` // YYYY-MM-DD, defaults to today
	Champions []string `json:"champions" binding:"required"`
}

// Attribution names the person behind a change and an optional note for the
// history log.
type Attribution struct {
	Actor string `json:"actor"`
	Note  string `json:"note"`
}

// Decision carries an editor's legitimization judgment into the tracker.
// The tracker records it but never makes it.
type Decision struct {
	Attribution
	Approved bool `json:"approved"`
}

// AssignRequest represents an editor's legitimization decision
type AssignRequest struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note"`
}

// TransitionRequest represents a request to move a proposal to a new status
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// ResolutionRequest sets the resolution link of a proposal
type ResolutionRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// DiscussionRequest appends a discussion link to a proposal
type DiscussionRequest struct {
	Link string `json:"link" binding:"required"`
}

// SupersedeRequest marks a proposal as superseded by another one
type SupersedeRequest struct {
	By   string `json:"by" binding:"required"`
	Note string `json:"note"`
}

// ProposalFilter narrows proposal listings
type ProposalFilter struct {
	Status ProposalStatus
	Type   ProposalType
	Limit  int
	Offset int
}
