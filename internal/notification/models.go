package notification

import "context"

// Channel is a delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Tier is one escalation stage for overdue remittances. Boundaries are the
// exact daysOverdue values at which the daily sweep fires; between
// boundaries nothing is sent, so nobody gets spammed daily.
type Tier struct {
	Name            string
	MinDays         int
	Channels        []Channel
	NotifyExecutive bool
}

var tiers = []Tier{
	{Name: "reminder", MinDays: 7, Channels: []Channel{ChannelEmail}},
	{Name: "warning", MinDays: 14, Channels: []Channel{ChannelEmail, ChannelSMS}},
	{Name: "critical", MinDays: 30, Channels: []Channel{ChannelEmail, ChannelSMS}, NotifyExecutive: true},
}

// EscalationBoundaries are the daysOverdue values that trigger an alert.
var EscalationBoundaries = []int{7, 14, 30}

// TierFor maps daysOverdue onto its escalation tier; ok is false below the
// first boundary.
func TierFor(daysOverdue int) (Tier, bool) {
	for i := len(tiers) - 1; i >= 0; i-- {
		if daysOverdue >= tiers[i].MinDays {
			return tiers[i], true
		}
	}
	return Tier{}, false
}

// AtBoundary reports whether daysOverdue is exactly an escalation boundary.
func AtBoundary(daysOverdue int) bool {
	for _, b := range EscalationBoundaries {
		if daysOverdue == b {
			return true
		}
	}
	return false
}

// Recipient is a resolved delivery target.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// SendResult is what the email and SMS collaborators report back.
type SendResult struct {
	Success   bool
	MessageID string
	Err       string
}

// EmailSender is the outbound email collaborator.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) SendResult
}

// SMSSender is the outbound SMS collaborator.
type SMSSender interface {
	Send(ctx context.Context, to, message string) SendResult
}
