package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sympep-tracker/internal/utils"
)

type ProposalType string

const (
	ProposalTypeStandardsTrack ProposalType = "Standards Track"
	ProposalTypeInformational  ProposalType = "Informational"
	ProposalTypeProcess        ProposalType = "Process"
)

// IsValid reports whether t is one of the known proposal types.
func (t ProposalType) IsValid() bool {
	switch t {
	case ProposalTypeStandardsTrack, ProposalTypeInformational, ProposalTypeProcess:
		return true
	default:
		return false
	}
}

// ParseProposalType accepts the canonical names plus the compact
// "StandardsTrack" spelling used in some headers.
func ParseProposalType(s string) (ProposalType, bool) {
	switch s {
	case "Standards Track", "StandardsTrack", "Standards-Track":
		return ProposalTypeStandardsTrack, true
	case "Informational":
		return ProposalTypeInformational, true
	case "Process":
		return ProposalTypeProcess, true
	}
	return "", false
}

// Proposal represents one enhancement proposal document
type Proposal struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Handle       string         `gorm:"-" json:"handle"`
	Number       *int64         `gorm:"uniqueIndex" json:"number"`
	Title        string         `gorm:"size:500;not null" json:"title"`
	Type         ProposalType   `gorm:"size:50;not null;index" json:"type"`
	Status       ProposalStatus `gorm:"size:50;not null;default:Draft;index" json:"status"`
	Created      time.Time      `gorm:"not null" json:"created"`
	Resolution   *string        `gorm:"size:2000" json:"resolution"`
	Replaces     *int64         `json:"replaces,omitempty"`
	SupersededBy *int64         `json:"superseded_by,omitempty"`
	Version      int64          `gorm:"not null;default:1" json:"version"`
	Champions    []Champion     `gorm:"foreignKey:ProposalID" json:"champions"`
	Discussions  []Discussion   `gorm:"foreignKey:ProposalID" json:"discussions,omitempty"`
	AssignedAt   *time.Time     `json:"assigned_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}

func (p *Proposal) AfterFind(tx *gorm.DB) error {
	p.Handle = utils.EncodeHandle(p.ID)
	return nil
}

func (p *Proposal) AfterCreate(tx *gorm.DB) error {
	p.Handle = utils.EncodeHandle(p.ID)
	return nil
}

// HasResolution reports whether a non-empty resolution link is recorded.
func (p *Proposal) HasResolution() bool {
	return p.Resolution != nil && *p.Resolution != ""
}

// ChampionHandles returns the champion handles in their stored order.
func (p *Proposal) ChampionHandles() []string {
	handles := make([]string, 0, len(p.Champions))
	for _, c := range p.Champions {
		handles = append(handles, c.Handle)
	}
	return handles
}

// Champion is a person responsible for advancing a proposal
type Champion struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	ProposalID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_champion_proposal_handle" json:"-"`
	Handle     string    `gorm:"size:255;not null;uniqueIndex:idx_champion_proposal_handle" json:"handle"`
	Position   int       `gorm:"not null" json:"-"`
}

func (Champion) TableName() string {
	return "proposal_champions"
}

// Discussion is an external reference to a discussion thread. Rows are
// never updated or deleted.
type Discussion struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	ProposalID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Seq        int       `gorm:"not null" json:"seq"`
	Link       string    `gorm:"size:2000;not null" json:"link"`
	AddedBy    string    `gorm:"size:255" json:"added_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Discussion) TableName() string {
	return "proposal_discussions"
}

// StatusChange is one entry of a proposal's transition history
type StatusChange struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ProposalID uuid.UUID      `gorm:"type:uuid;not null;index" json:"proposal_id"`
	FromStatus ProposalStatus `gorm:"size:50;not null" json:"from"`
	ToStatus   ProposalStatus `gorm:"size:50;not null" json:"to"`
	Actor      string         `gorm:"size:255" json:"actor"`
	Note       string         `gorm:"type:text" json:"note,omitempty"`
	ChangedAt  time.Time      `gorm:"not null" json:"changed_at"`
}

func (StatusChange) TableName() string {
	return "proposal_status_changes"
}

// NumberCounter holds the highest number handed out by the numbering authority
type NumberCounter struct {
	Name      string    `gorm:"primaryKey;size:50" json:"name"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (NumberCounter) TableName() string {
	return "number_counters"
}

// RegistryNotification is an outbox row telling the registry publisher that
// the index document must be regenerated.
type RegistryNotification struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProposalID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"proposal_id"`
	Number      int64      `gorm:"not null" json:"number"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
}

func (RegistryNotification) TableName() string {
	return "registry_notifications"
}
