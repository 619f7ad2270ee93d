package repository

import (
	"context"
	"errors"
	"time"

	"sympep-tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict is returned when a versioned update finds the row was
// changed since it was read.
var ErrVersionConflict = errors.New("proposal was modified concurrently")

// counterName identifies the numbering sequence for proposals.
const counterName = "sympep"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to a single database transaction
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// CreateProposal creates a new proposal together with its champions
func (r *Repository) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

// GetProposal retrieves a proposal by ID with champions and discussions loaded
func (r *Repository) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.WithContext(ctx).
		Preload("Champions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Discussions", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", id).
		First(&proposal).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// FindProposalIDByNumber resolves an assigned number to the proposal ID
func (r *Repository) FindProposalIDByNumber(ctx context.Context, number int64) (uuid.UUID, error) {
	var proposal models.Proposal
	err := r.db.WithContext(ctx).
		Select("id").
		Where("number = ?", number).
		Take(&proposal).Error
	if err != nil {
		return uuid.Nil, err
	}
	return proposal.ID, nil
}

// LockProposal reads a proposal and its champions, holding a row lock until
// the surrounding transaction ends. SQLite ignores the lock clause.
func (r *Repository) LockProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&proposal).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Where("proposal_id = ?", id).
		Order("position ASC").
		Find(&proposal.Champions).Error
	if err != nil {
		return nil, err
	}

	return &proposal, nil
}

// UpdateProposal writes fields only if the stored version still matches
// proposal.Version, then bumps the version on both the row and the struct.
func (r *Repository) UpdateProposal(
	ctx context.Context,
	proposal *models.Proposal,
	fields map[string]interface{},
) error {
	now := time.Now()
	fields["version"] = proposal.Version + 1
	fields["updated_at"] = now

	result := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND version = ?", proposal.ID, proposal.Version).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	proposal.Version++
	proposal.UpdatedAt = now
	return nil
}

// ListProposals retrieves proposals matching the filter with total count.
// Numbered proposals come first in number order, drafts after them by age.
func (r *Repository) ListProposals(ctx context.Context, filter models.ProposalFilter) ([]*models.Proposal, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Proposal{})
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.Type != "" {
			query = query.Where("type = ?", filter.Type)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var proposals []*models.Proposal
	err := scoped().
		Preload("Champions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("CASE WHEN number IS NULL THEN 1 ELSE 0 END").
		Order("number ASC").
		Order("created_at ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}

	return proposals, total, nil
}

// ListNumberedProposals retrieves every proposal that has a number, in number order
func (r *Repository) ListNumberedProposals(ctx context.Context) ([]*models.Proposal, error) {
	var proposals []*models.Proposal
	err := r.db.WithContext(ctx).
		Preload("Champions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("number IS NOT NULL").
		Order("number ASC").
		Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

// MaxAssignedNumber returns the highest number on any proposal, or 0
func (r *Repository) MaxAssignedNumber(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Select("COALESCE(MAX(number), 0)").
		Scan(&max).Error
	return max, err
}

// NextNumber advances the numbering counter and returns the new value. It
// must run inside a transaction so a rollback also returns the number.
func (r *Repository) NextNumber(ctx context.Context) (int64, error) {
	// Make sure the counter row exists before locking it
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.NumberCounter{Name: counterName, Value: 0}).Error
	if err != nil {
		return 0, err
	}

	var counter models.NumberCounter
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", counterName).
		First(&counter).Error
	if err != nil {
		return 0, err
	}

	max, err := r.MaxAssignedNumber(ctx)
	if err != nil {
		return 0, err
	}

	next := counter.Value
	if max > next {
		next = max
	}
	next++

	err = r.db.WithContext(ctx).
		Model(&models.NumberCounter{}).
		Where("name = ?", counterName).
		Updates(map[string]interface{}{
			"value":      next,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return 0, err
	}

	return next, nil
}

// CreateStatusChange appends an entry to a proposal's transition history
func (r *Repository) CreateStatusChange(ctx context.Context, change *models.StatusChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

// ListStatusChanges retrieves the transition history of a proposal, oldest first
func (r *Repository) ListStatusChanges(ctx context.Context, proposalID uuid.UUID) ([]*models.StatusChange, error) {
	var changes []*models.StatusChange
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("id ASC").
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// AppendDiscussion stores a discussion link with the next sequence number.
// The caller must hold the proposal lock.
func (r *Repository) AppendDiscussion(ctx context.Context, discussion *models.Discussion) error {
	var last int
	err := r.db.WithContext(ctx).
		Model(&models.Discussion{}).
		Select("COALESCE(MAX(seq), 0)").
		Where("proposal_id = ?", discussion.ProposalID).
		Scan(&last).Error
	if err != nil {
		return err
	}

	discussion.Seq = last + 1
	return r.db.WithContext(ctx).Create(discussion).Error
}

// ListDiscussions retrieves discussion links of a proposal in append order
func (r *Repository) ListDiscussions(ctx context.Context, proposalID uuid.UUID) ([]*models.Discussion, error) {
	var discussions []*models.Discussion
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("seq ASC").
		Find(&discussions).Error
	if err != nil {
		return nil, err
	}
	return discussions, nil
}

// CreateRegistryNotification queues a registry update
func (r *Repository) CreateRegistryNotification(ctx context.Context, notification *models.RegistryNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// PendingRegistryNotifications retrieves unpublished notifications, oldest first
func (r *Repository) PendingRegistryNotifications(ctx context.Context, limit int) ([]*models.RegistryNotification, error) {
	var notifications []*models.RegistryNotification
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationsPublished records a successful registry write
func (r *Repository) MarkNotificationsPublished(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.RegistryNotification{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
			"published_at": at,
		}).Error
}

// MarkNotificationsFailed records a failed registry write; the rows stay pending
func (r *Repository) MarkNotificationsFailed(ctx context.Context, ids []uint, cause string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.RegistryNotification{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		}).Error
}
