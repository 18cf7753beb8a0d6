package registry

// RemoteOrganization is the external registry's view of an affiliate,
// as returned by GET /organizations/{affiliateCode}.
type RemoteOrganization struct {
	AffiliateCode    string   `json:"affiliateCode"`
	Name             string   `json:"name"`
	LegalName        string   `json:"legalName"`
	OrganizationType string   `json:"organizationType"`
	Status           string   `json:"status"`
	Province         string   `json:"province"`
	City             string   `json:"city"`
	PostalCode       string   `json:"postalCode"`
	ContactEmail     string   `json:"contactEmail"`
	ContactPhone     string   `json:"contactPhone"`
	MembershipCount  int      `json:"membershipCount"`
	PerCapitaRate    *float64 `json:"perCapitaRate,omitempty"`
}

// Outcome classifies one organization's sync.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// SyncResult is the per-organization sync verdict.
type SyncResult struct {
	Outcome Outcome
	// AppliedFields lists fields the remote value overwrote.
	AppliedFields []string
	// Conflicts counts fields queued for manual review.
	Conflicts int
	Err       error
}

// Summary aggregates a SyncAll batch.
type Summary struct {
	Created   int
	Updated   int
	Skipped   int
	Failed    int
	Conflicts int
}

func (s *Summary) record(res SyncResult) {
	switch res.Outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
	s.Conflicts += res.Conflicts
}
