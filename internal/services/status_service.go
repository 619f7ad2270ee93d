package services

import (
	"context"
	"log"
	"strings"
	"time"

	"sympep-tracker/internal/metrics"
	"sympep-tracker/internal/models"
	"sympep-tracker/internal/repository"
)

// StatusService enforces the proposal status graph and keeps the transition
// history.
type StatusService struct {
	store *ProposalService
}

func NewStatusService(store *ProposalService) *StatusService {
	return &StatusService{store: store}
}

// Transition moves a proposal to target. Accepted, Rejected and Withdrawn
// need a resolution link that the caller has already recorded.
func (s *StatusService) Transition(
	ctx context.Context,
	ref string,
	target models.ProposalStatus,
	by models.Attribution,
) (p *models.Proposal, err error) {
	defer observe("transition", &err)

	id, err := s.store.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	err = s.store.mutate(ctx, ref, id, func(tx *repository.Repository, proposal *models.Proposal) error {
		if err := checkTransition(ref, proposal, target); err != nil {
			return err
		}
		return applyTransition(ctx, tx, proposal, target, by, nil)
	})
	if err != nil {
		return nil, err
	}

	return s.store.repo.GetProposal(ctx, id)
}

// Supersede marks ref as replaced by the numbered proposal byRef and links
// the two records both ways.
func (s *StatusService) Supersede(
	ctx context.Context,
	ref string,
	byRef string,
	by models.Attribution,
) (p *models.Proposal, err error) {
	defer observe("supersede", &err)

	id, err := s.store.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	byID, err := s.store.resolve(ctx, byRef)
	if err != nil {
		return nil, err
	}
	if id == byID {
		return nil, validationf(ref, "a proposal cannot supersede itself")
	}

	unlock := s.store.locks.Lock(id, byID)
	defer unlock()

	err = s.store.repo.Transaction(ctx, func(tx *repository.Repository) error {
		proposal, err := tx.LockProposal(ctx, id)
		if err != nil {
			return err
		}
		successor, err := tx.LockProposal(ctx, byID)
		if err != nil {
			return translate(byRef, err)
		}

		if successor.Number == nil {
			return validationf(byRef, "the superseding proposal must be numbered")
		}
		if err := checkTransition(ref, proposal, models.ProposalStatusSuperseded); err != nil {
			return err
		}

		err = applyTransition(ctx, tx, proposal, models.ProposalStatusSuperseded, by, map[string]interface{}{
			"superseded_by": *successor.Number,
		})
		if err != nil {
			return err
		}

		if proposal.Number != nil {
			return tx.UpdateProposal(ctx, successor, map[string]interface{}{"replaces": *proposal.Number})
		}
		return nil
	})
	if err := translate(ref, err); err != nil {
		return nil, err
	}

	return s.store.repo.GetProposal(ctx, id)
}

// History returns the transition log of a proposal, oldest first
func (s *StatusService) History(ctx context.Context, ref string) (changes []*models.StatusChange, err error) {
	defer observe("history", &err)

	id, err := s.store.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.repo.GetProposal(ctx, id); err != nil {
		return nil, translate(ref, err)
	}

	changes, err = s.store.repo.ListStatusChanges(ctx, id)
	if err != nil {
		return nil, translate(ref, err)
	}
	return changes, nil
}

func checkTransition(ref string, proposal *models.Proposal, target models.ProposalStatus) error {
	if !proposal.Status.CanTransitionTo(target) {
		return newError(ErrIllegalTransition, ref, "%s -> %s", proposal.Status, target)
	}
	if target.RequiresResolution() && !proposal.HasResolution() {
		return newError(ErrMissingResolution, ref, "set a resolution link before moving to %s", target)
	}
	return nil
}

// applyTransition writes the new status and its history entry. extra holds
// further columns to update in the same statement.
func applyTransition(
	ctx context.Context,
	tx *repository.Repository,
	proposal *models.Proposal,
	target models.ProposalStatus,
	by models.Attribution,
	extra map[string]interface{},
) error {
	from := proposal.Status

	fields := map[string]interface{}{"status": target}
	for k, v := range extra {
		fields[k] = v
	}
	if err := tx.UpdateProposal(ctx, proposal, fields); err != nil {
		return err
	}

	err := tx.CreateStatusChange(ctx, &models.StatusChange{
		ProposalID: proposal.ID,
		FromStatus: from,
		ToStatus:   target,
		Actor:      strings.TrimSpace(by.Actor),
		Note:       strings.TrimSpace(by.Note),
		ChangedAt:  time.Now(),
	})
	if err != nil {
		return err
	}

	proposal.Status = target
	metrics.Transitions.WithLabelValues(string(from), string(target)).Inc()
	log.Printf("[StatusService] %s: %s -> %s by %s", proposal.Handle, from, target, by.Actor)
	return nil
}
