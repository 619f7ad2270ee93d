package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"sympep-tracker/internal/metrics"
	"sympep-tracker/internal/models"
	"sympep-tracker/internal/repository"
	"sympep-tracker/internal/utils"
)

// NumberingService hands out proposal numbers once an editor has judged a
// proposal legitimate. Numbers increase by one with no gaps and are never
// reused.
type NumberingService struct {
	store *ProposalService
	mu    sync.Mutex
}

func NewNumberingService(store *ProposalService) *NumberingService {
	return &NumberingService{store: store}
}

// Assign gives the proposal the next number and queues a registry update in
// the same transaction.
func (s *NumberingService) Assign(ctx context.Context, ref string, decision models.Decision) (number int64, err error) {
	defer observe("assign", &err)

	if !decision.Approved {
		return 0, validationf(ref, "numbering requires an approving legitimization decision")
	}
	actor := strings.TrimSpace(decision.Actor)
	if actor == "" {
		return 0, validationf(ref, "decision must name the deciding editor")
	}

	id, err := s.store.resolve(ctx, ref)
	if err != nil {
		return 0, err
	}

	// Lock order is proposal first, then the numbering sequence. The sequence
	// lock is taken before the transaction so a waiting caller never holds a
	// database connection.
	unlock := s.store.locks.Lock(id)
	defer unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	var title string
	err = s.store.repo.Transaction(ctx, func(tx *repository.Repository) error {
		proposal, err := tx.LockProposal(ctx, id)
		if err != nil {
			return err
		}
		if proposal.Number != nil {
			return newError(ErrAlreadyAssigned, ref, "already numbered %s", utils.FormatNumber(*proposal.Number))
		}
		if len(proposal.Champions) == 0 {
			return validationf(ref, "a proposal needs a champion before it can be numbered")
		}

		next, err := tx.NextNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to advance numbering sequence: %w", err)
		}

		now := time.Now()
		err = tx.UpdateProposal(ctx, proposal, map[string]interface{}{
			"number":      next,
			"assigned_at": now,
		})
		if err != nil {
			return err
		}

		err = tx.CreateRegistryNotification(ctx, &models.RegistryNotification{
			ProposalID: proposal.ID,
			Number:     next,
		})
		if err != nil {
			return fmt.Errorf("failed to queue registry update: %w", err)
		}

		number = next
		title = proposal.Title
		return nil
	})
	if err != nil {
		return 0, translate(ref, err)
	}

	metrics.NumbersAssigned.Inc()
	log.Printf("[NumberingService] Assigned %s to %q (approved by %s)", utils.FormatNumber(number), title, actor)

	return number, nil
}
