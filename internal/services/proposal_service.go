package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sympep-tracker/internal/metrics"
	"sympep-tracker/internal/models"
	"sympep-tracker/internal/repository"
	"sympep-tracker/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ProposalService is the document store: it creates, reads and updates
// proposal records and provides the locking used by the other services.
type ProposalService struct {
	repo  *repository.Repository
	locks *recordLocks
}

func NewProposalService(repo *repository.Repository) *ProposalService {
	return &ProposalService{
		repo:  repo,
		locks: newRecordLocks(),
	}
}

// newProposal holds a validated proposal plus what must be written with it
type newProposal struct {
	proposal    *models.Proposal
	discussions []string
	actor       string
}

// Create creates a Draft proposal without a number
func (s *ProposalService) Create(
	ctx context.Context,
	title string,
	proposalType models.ProposalType,
	created time.Time,
	champions []string,
) (p *models.Proposal, err error) {
	defer observe("create", &err)

	draft, err := buildProposal(title, proposalType, created, champions)
	if err != nil {
		return nil, err
	}

	return s.insert(ctx, &newProposal{proposal: draft})
}

// CreateFromRequest parses an API request and creates the proposal
func (s *ProposalService) CreateFromRequest(ctx context.Context, req *models.CreateProposalRequest) (*models.Proposal, error) {
	proposalType, ok := models.ParseProposalType(strings.TrimSpace(req.Type))
	if !ok {
		err := validationf("", "unknown proposal type %q", req.Type)
		observe("create", &err)
		return nil, err
	}

	created, err := ParseCreated(req.Created)
	if err != nil {
		observe("create", &err)
		return nil, err
	}

	return s.Create(ctx, req.Title, proposalType, created, req.Champions)
}

func buildProposal(
	title string,
	proposalType models.ProposalType,
	created time.Time,
	champions []string,
) (*models.Proposal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationf("", "title must not be empty")
	}
	if !proposalType.IsValid() {
		return nil, validationf("", "unknown proposal type %q", proposalType)
	}
	if created.IsZero() {
		return nil, validationf("", "created date is required")
	}

	handles := normalizeChampions(champions)
	if len(handles) == 0 {
		return nil, validationf("", "at least one champion is required")
	}

	proposal := &models.Proposal{
		ID:      uuid.New(),
		Title:   title,
		Type:    proposalType,
		Status:  models.ProposalStatusDraft,
		Created: dateOf(created),
		Version: 1,
	}
	for i, handle := range handles {
		proposal.Champions = append(proposal.Champions, models.Champion{
			Handle:   handle,
			Position: i,
		})
	}

	return proposal, nil
}

func (s *ProposalService) insert(ctx context.Context, np *newProposal) (*models.Proposal, error) {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateProposal(ctx, np.proposal); err != nil {
			return fmt.Errorf("failed to create proposal: %w", err)
		}
		for _, link := range np.discussions {
			discussion := &models.Discussion{
				ProposalID: np.proposal.ID,
				Link:       link,
				AddedBy:    np.actor,
			}
			if err := tx.AppendDiscussion(ctx, discussion); err != nil {
				return fmt.Errorf("failed to link discussion: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ProposalsCreated.Inc()
	log.Printf("[ProposalService] Created draft %s %q", np.proposal.Handle, np.proposal.Title)

	return s.repo.GetProposal(ctx, np.proposal.ID)
}

// Get retrieves a proposal by number, uuid or handle
func (s *ProposalService) Get(ctx context.Context, ref string) (p *models.Proposal, err error) {
	defer observe("get", &err)

	id, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	p, err = s.repo.GetProposal(ctx, id)
	if err != nil {
		return nil, translate(ref, err)
	}
	return p, nil
}

// List retrieves a page of proposals and the total matching count
func (s *ProposalService) List(ctx context.Context, filter models.ProposalFilter) ([]*models.Proposal, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	proposals, total, err := s.repo.ListProposals(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, total, nil
}

// SetResolution records the link documenting the community decision. It
// has to be set before a transition into Accepted, Rejected or Withdrawn.
func (s *ProposalService) SetResolution(ctx context.Context, ref string, link string) (p *models.Proposal, err error) {
	defer observe("set_resolution", &err)

	link = strings.TrimSpace(link)
	if link == "" {
		return nil, validationf(ref, "resolution link must not be empty")
	}

	id, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	err = s.mutate(ctx, ref, id, func(tx *repository.Repository, proposal *models.Proposal) error {
		return tx.UpdateProposal(ctx, proposal, map[string]interface{}{"resolution": link})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetProposal(ctx, id)
}

// UpdateStatus moves the proposal through the status graph
func (s *ProposalService) UpdateStatus(
	ctx context.Context,
	ref string,
	target models.ProposalStatus,
	by models.Attribution,
) (*models.Proposal, error) {
	return NewStatusService(s).Transition(ctx, ref, target, by)
}

// AppendDiscussion links another discussion thread to the proposal
func (s *ProposalService) AppendDiscussion(ctx context.Context, ref string, link string, actor string) (*models.Discussion, error) {
	return NewDiscussionService(s).Append(ctx, ref, link, actor)
}

// resolve turns a user supplied reference into a proposal ID
func (s *ProposalService) resolve(ctx context.Context, ref string) (uuid.UUID, error) {
	parsed, err := utils.ParseRef(ref)
	if err != nil {
		return uuid.Nil, newError(ErrNotFound, ref, "%v", err)
	}

	if parsed.Number > 0 {
		id, err := s.repo.FindProposalIDByNumber(ctx, parsed.Number)
		if err != nil {
			return uuid.Nil, translate(ref, err)
		}
		return id, nil
	}

	return parsed.ID, nil
}

// mutate runs fn in a transaction holding both the in-process lock and the
// row lock of proposal id.
func (s *ProposalService) mutate(
	ctx context.Context,
	ref string,
	id uuid.UUID,
	fn func(tx *repository.Repository, p *models.Proposal) error,
) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		proposal, err := tx.LockProposal(ctx, id)
		if err != nil {
			return err
		}
		return fn(tx, proposal)
	})
	return translate(ref, err)
}

// translate maps storage errors onto the service error kinds
func translate(ref string, err error) error {
	var perr *ProposalError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &perr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(ErrNotFound, ref, "no such proposal")
	case errors.Is(err, repository.ErrVersionConflict):
		return newError(ErrConflict, ref, "%v", err)
	default:
		return fmt.Errorf("proposal %s: %w", ref, err)
	}
}

func normalizeChampions(champions []string) []string {
	seen := make(map[string]bool, len(champions))
	handles := make([]string, 0, len(champions))
	for _, c := range champions {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		handles = append(handles, c)
	}
	return handles
}

// dateOf truncates t to a UTC calendar date
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
