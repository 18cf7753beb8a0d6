package registry

import (
	"strconv"

	"fedremit/internal/organization"
)

// Resolution is a per-field conflict policy outcome. Each field resolves
// independently: a manual_review field never blocks remote_wins fields from
// applying in the same sync.
type Resolution string

const (
	RemoteWins   Resolution = "remote_wins"
	LocalWins    Resolution = "local_wins"
	ManualReview Resolution = "manual_review"
)

// fieldPolicy is the static per-field conflict table. The registry owns
// identity facts; locally curated contact details stay local; the financial
// rate is too consequential to change without a human looking at it.
var fieldPolicy = map[string]Resolution{
	"name":             RemoteWins,
	"legalName":        RemoteWins,
	"organizationType": RemoteWins,
	"status":           RemoteWins,
	"province":         RemoteWins,
	"city":             RemoteWins,
	"postalCode":       RemoteWins,
	"membershipCount":  RemoteWins,
	"contactEmail":     LocalWins,
	"contactPhone":     LocalWins,
	"perCapitaRate":    ManualReview,
}

// FieldChange is one diffed field with its resolution.
type FieldChange struct {
	Field      string
	Local      string
	Remote     string
	Resolution Resolution
	apply      func(*organization.Organization)
}

// PolicyFor exposes the table for tests and admin introspection.
func PolicyFor(field string) (Resolution, bool) {
	res, ok := fieldPolicy[field]
	return res, ok
}

// diff compares every mapped field and returns the changed ones with their
// resolutions and appliers. Organization status maps remote active/inactive
// strings onto the local status enum without ever resurrecting a suspension.
func diff(local *organization.Organization, remote *RemoteOrganization) []FieldChange {
	var changes []FieldChange

	add := func(field, localVal, remoteVal string, apply func(*organization.Organization)) {
		if localVal == remoteVal {
			return
		}
		changes = append(changes, FieldChange{
			Field:      field,
			Local:      localVal,
			Remote:     remoteVal,
			Resolution: fieldPolicy[field],
			apply:      apply,
		})
	}

	add("name", local.Name, remote.Name, func(o *organization.Organization) { o.Name = remote.Name })
	add("legalName", local.LegalName, remote.LegalName, func(o *organization.Organization) { o.LegalName = remote.LegalName })
	add("organizationType", local.OrganizationType, remote.OrganizationType, func(o *organization.Organization) { o.OrganizationType = remote.OrganizationType })
	add("province", local.Province, remote.Province, func(o *organization.Organization) { o.Province = remote.Province })
	add("city", local.City, remote.City, func(o *organization.Organization) { o.City = remote.City })
	add("postalCode", local.PostalCode, remote.PostalCode, func(o *organization.Organization) { o.PostalCode = remote.PostalCode })
	add("contactEmail", local.ContactEmail, remote.ContactEmail, func(o *organization.Organization) { o.ContactEmail = remote.ContactEmail })
	add("contactPhone", local.ContactPhone, remote.ContactPhone, func(o *organization.Organization) { o.ContactPhone = remote.ContactPhone })
	add("membershipCount", strconv.Itoa(local.MembershipCount), strconv.Itoa(remote.MembershipCount),
		func(o *organization.Organization) { o.MembershipCount = remote.MembershipCount })

	if mapped := mapRemoteStatus(remote.Status, local.Status); mapped != local.Status {
		add("status", string(local.Status), string(mapped),
			func(o *organization.Organization) { o.Status = mapped })
	}

	if remote.PerCapitaRate != nil {
		localRate := strconv.FormatFloat(local.Config.PerCapitaRate, 'f', 2, 64)
		remoteRate := strconv.FormatFloat(*remote.PerCapitaRate, 'f', 2, 64)
		add("perCapitaRate", localRate, remoteRate, nil)
	}

	return changes
}

// mapRemoteStatus translates registry status strings. A local suspension is
// an administrative hold; the registry cannot lift it.
func mapRemoteStatus(remote string, local organization.Status) organization.Status {
	if local == organization.StatusSuspended {
		return local
	}
	switch remote {
	case "active":
		return organization.StatusActive
	case "inactive", "dissolved":
		return organization.StatusInactive
	default:
		return local
	}
}
