package services

import (
	"context"
	"log"
	"strings"

	"sympep-tracker/internal/metrics"
	"sympep-tracker/internal/models"
	"sympep-tracker/internal/repository"
)

// DiscussionService keeps the append-only list of discussion links per
// proposal. Links are opaque: duplicates are kept and nothing is fetched.
type DiscussionService struct {
	store *ProposalService
}

func NewDiscussionService(store *ProposalService) *DiscussionService {
	return &DiscussionService{store: store}
}

// Append adds link after the existing discussions of the proposal
func (s *DiscussionService) Append(ctx context.Context, ref string, link string, actor string) (d *models.Discussion, err error) {
	defer observe("append_discussion", &err)

	link = strings.TrimSpace(link)
	if link == "" {
		return nil, validationf(ref, "discussion link must not be empty")
	}

	id, err := s.store.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	discussion := &models.Discussion{
		ProposalID: id,
		Link:       link,
		AddedBy:    strings.TrimSpace(actor),
	}
	err = s.store.mutate(ctx, ref, id, func(tx *repository.Repository, _ *models.Proposal) error {
		return tx.AppendDiscussion(ctx, discussion)
	})
	if err != nil {
		return nil, err
	}

	metrics.DiscussionsLinked.Inc()
	log.Printf("[DiscussionService] Linked discussion #%d to %s", discussion.Seq, ref)

	return discussion, nil
}

// List returns the discussion links of a proposal in append order
func (s *DiscussionService) List(ctx context.Context, ref string) (discussions []*models.Discussion, err error) {
	defer observe("list_discussions", &err)

	id, err := s.store.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.repo.GetProposal(ctx, id); err != nil {
		return nil, translate(ref, err)
	}

	discussions, err = s.store.repo.ListDiscussions(ctx, id)
	if err != nil {
		return nil, translate(ref, err)
	}
	return discussions, nil
}
