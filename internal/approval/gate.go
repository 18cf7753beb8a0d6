package approval

import (
	"fmt"
	"math"
	"time"

	"fedremit/internal/remittance"
)

// GateResult is the compliance gate's verdict. Errors block submission;
// warnings ride along without blocking.
type GateResult struct {
	Errors   []string
	Warnings []string
}

func (g GateResult) Passed() bool { return len(g.Errors) == 0 }

// complianceGate validates a remittance's figures before it may enter the
// workflow. Submission past the due date is flagged but not blocked: late is
// a compliance-analytics concern, not a data-integrity one.
func complianceGate(r *remittance.Remittance, now time.Time) GateResult {
	var g GateResult

	if r.TotalMembers <= 0 {
		g.Errors = append(g.Errors, "total members must be positive")
	}
	if r.PerCapitaRate <= 0 {
		g.Errors = append(g.Errors, "per-capita rate must be positive")
	}
	if r.TotalAmount <= 0 {
		g.Errors = append(g.Errors, "total amount must be positive")
	}
	expected := float64(r.RemittableMembers) * r.PerCapitaRate
	if math.Abs(r.TotalAmount-expected) > remittance.AmountTolerance {
		g.Errors = append(g.Errors, fmt.Sprintf(
			"total amount %.2f does not match remittable members x rate (%.2f)",
			r.TotalAmount, expected))
	}

	if now.After(r.DueDate) {
		g.Warnings = append(g.Warnings, fmt.Sprintf(
			"remittance is past its due date of %s", r.DueDate.Format("2006-01-02")))
	}
	return g
}
