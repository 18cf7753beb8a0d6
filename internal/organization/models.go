package organization

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks an organization's lifecycle. Deletions coming from the
// external registry are soft: the row flips to inactive, never disappears.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Organization is a node in the federation hierarchy. Path is the
// materialized ancestor chain ("/clc/ontario/local-1234") used for depth
// queries without recursive lookups.
type Organization struct {
	ID       uuid.UUID
	Name     string
	ParentID *uuid.UUID
	Path     string
	Status   Status

	// AffiliateCode is the external registry's stable identifier. Empty
	// means the organization is not registry-linked.
	AffiliateCode string

	LegalName        string
	OrganizationType string
	Province         string
	City             string
	PostalCode       string
	ContactEmail     string
	ContactPhone     string
	MembershipCount  int

	Config Config

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Config is the per-organization remittance configuration. It replaces the
// free-form JSON blob the legacy UI stored: every field is typed and optional
// fields get explicit defaults through MergeDefaults.
type Config struct {
	// PerCapitaRate is the dollar amount owed per remittable member. Zero
	// disables calculation for the organization.
	PerCapitaRate float64
	// RemittanceDay is the day-of-month a remittance falls due.
	RemittanceDay int
	// ApprovalLevels is the ordered sign-off chain. Empty means the
	// federation default chain.
	ApprovalLevels []string
}

// DefaultApprovalLevels is the federation-wide sign-off chain applied when an
// organization has no override.
var DefaultApprovalLevels = []string{"local", "regional", "national", "clc"}

// DefaultRemittanceDay applies when no day is configured.
const DefaultRemittanceDay = 15

// MergeDefaults fills unset fields with federation defaults. It never
// overrides an explicitly configured value.
func (c Config) MergeDefaults() Config {
	merged := c
	if merged.RemittanceDay <= 0 || merged.RemittanceDay > 28 {
		merged.RemittanceDay = DefaultRemittanceDay
	}
	if len(merged.ApprovalLevels) == 0 {
		merged.ApprovalLevels = append([]string(nil), DefaultApprovalLevels...)
	}
	return merged
}

// IsActive reports whether the organization participates in batch processing.
func (o *Organization) IsActive() bool {
	return o.Status == StatusActive
}
