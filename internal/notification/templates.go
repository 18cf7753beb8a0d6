package notification

import (
	"fmt"
	"time"

	"fedremit/internal/remittance"
)

func periodLabel(r *remittance.Remittance) string {
	return fmt.Sprintf("%s %d", time.Month(r.Month), r.Year)
}

// overdueSubject and friends render the tier-specific message bodies. These
// stay deliberately plain; presentation belongs to the mail templates the
// UI team owns, the core only guarantees the facts are in the message.
func overdueSubject(tier Tier, r *remittance.Remittance) string {
	switch tier.Name {
	case "critical":
		return fmt.Sprintf("FINAL NOTICE: per-capita remittance for %s severely overdue", periodLabel(r))
	case "warning":
		return fmt.Sprintf("Second notice: per-capita remittance for %s overdue", periodLabel(r))
	default:
		return fmt.Sprintf("Reminder: per-capita remittance for %s is overdue", periodLabel(r))
	}
}

func overdueEmailBody(tier Tier, r *remittance.Remittance, daysOverdue int) string {
	return fmt.Sprintf(
		"<p>The per-capita remittance for %s ($%.2f, due %s) is %d days overdue.</p>"+
			"<p>Please submit payment or contact your federation office. Escalation level: %s.</p>",
		periodLabel(r), r.TotalAmount, r.DueDate.Format("2006-01-02"), daysOverdue, tier.Name)
}

func overdueSMSBody(r *remittance.Remittance, daysOverdue int) string {
	return fmt.Sprintf("Per-capita remittance for %s ($%.2f) is %d days overdue. Please remit promptly.",
		periodLabel(r), r.TotalAmount, daysOverdue)
}

func reminderSubject(month, year int) string {
	return fmt.Sprintf("Per-capita remittance for %s %d is coming due", time.Month(month), year)
}

func reminderEmailBody(month, year, day int) string {
	return fmt.Sprintf(
		"<p>A per-capita remittance for %s %d has not been submitted yet. It falls due on the %d%s.</p>",
		time.Month(month), year, day, ordinal(day))
}

func escalationSubject(count int) string {
	return fmt.Sprintf("Executive escalation: %d remittance(s) 30+ days overdue", count)
}

func escalationEmailBody(rows []*remittance.Remittance) string {
	body := "<p>The following remittances have crossed the 30-day overdue boundary:</p><ul>"
	for _, r := range rows {
		body += fmt.Sprintf("<li>%s — $%.2f, due %s</li>",
			periodLabel(r), r.TotalAmount, r.DueDate.Format("2006-01-02"))
	}
	return body + "</ul>"
}

func ordinal(n int) string {
	switch {
	case n%100 >= 11 && n%100 <= 13:
		return "th"
	case n%10 == 1:
		return "st"
	case n%10 == 2:
		return "nd"
	case n%10 == 3:
		return "rd"
	default:
		return "th"
	}
}
