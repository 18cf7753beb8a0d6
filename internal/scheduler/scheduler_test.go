package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedremit/internal/auditlog"
	"fedremit/internal/member"
	"fedremit/internal/notification"
	"fedremit/internal/organization"
	"fedremit/internal/remittance"
	"fedremit/internal/remittance/calculator"
	"fedremit/internal/standing"
)

type quietMetrics struct{}

func (quietMetrics) CalculationProduced() {}
func (quietMetrics) RemittanceSaved()     {}
func (quietMetrics) Delivery(_, _ string) {}

type capturingEmail struct {
	mu   sync.Mutex
	sent []string
}

func (f *capturingEmail) Send(_ context.Context, to, _, _ string) notification.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return notification.SendResult{Success: true, MessageID: uuid.NewString()}
}

func (f *capturingEmail) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type capturingSMS struct {
	mu   sync.Mutex
	sent []string
}

func (f *capturingSMS) Send(_ context.Context, to, _ string) notification.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return notification.SendResult{Success: true, MessageID: uuid.NewString()}
}

type SchedulerSuite struct {
	suite.Suite
	ctx    context.Context
	orgs   *organization.MemoryStore
	remits *remittance.MemoryStore
	email  *capturingEmail
	sched  *Scheduler
	now    time.Time
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.ctx = context.Background()
	s.orgs = organization.NewMemory()
	s.remits = remittance.NewMemory()
	s.email = &capturingEmail{}
	s.now = time.Date(2025, 6, 12, 8, 0, 0, 0, time.UTC)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := auditlog.NewPublisher(auditlog.NewMemory(), log)
	metrics := quietMetrics{}
	clock := func() time.Time { return s.now }

	evaluator := standing.NewEvaluator(member.NewMemory()).WithClock(clock)
	calc := calculator.New(s.orgs, evaluator, s.remits, log, metrics).WithClock(clock)
	dispatcher := notification.NewDispatcher(s.orgs, s.remits, s.email, &capturingSMS{},
		notification.Recipient{Name: "Executive", Email: "executive@clc.example"},
		events, log, metrics).WithClock(clock)

	s.sched = New(calc, dispatcher, s.orgs, log, time.Hour).WithClock(clock)
}

func (s *SchedulerSuite) seedOrg(name, email string, remittanceDay int) *organization.Organization {
	org := &organization.Organization{
		ID: uuid.New(), Name: name, Status: organization.StatusActive,
		ContactEmail: email,
		Config:       organization.Config{RemittanceDay: remittanceDay},
	}
	s.Require().NoError(s.orgs.Save(s.ctx, org))
	return org
}

func (s *SchedulerSuite) TestSendReminders() {
	s.Run("reminds organizations whose remittance day is three days out", func() {
		s.seedOrg("Local 15", "treasurer@local15.example", 15)
		s.seedOrg("Local 20", "treasurer@local20.example", 20)

		s.sched.sendReminders(s.ctx, s.now)

		s.Equal([]string{"treasurer@local15.example"}, s.email.recipients())
	})

	s.Run("skips organizations that already have the period", func() {
		org := s.seedOrg("Local 15b", "treasurer@local15b.example", 15)
		r := &remittance.Remittance{
			FromOrgID: org.ID, ToOrgID: uuid.New(), Month: 6, Year: 2025,
			TotalMembers: 10, RemittableMembers: 10, PerCapitaRate: 2, TotalAmount: 20,
			DueDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		}
		s.Require().NoError(s.remits.Upsert(s.ctx, r))

		before := len(s.email.recipients())
		s.sched.sendReminders(s.ctx, s.now)
		after := s.email.recipients()[before:]
		s.NotContains(after, "treasurer@local15b.example")
	})
}

func (s *SchedulerSuite) TestRunDaily() {
	org := s.seedOrg("Local 77", "treasurer@local77.example", 1)
	r := &remittance.Remittance{
		FromOrgID: org.ID, ToOrgID: uuid.New(), Month: 5, Year: 2025,
		TotalMembers: 10, RemittableMembers: 10, PerCapitaRate: 2, TotalAmount: 20,
		DueDate: s.now.AddDate(0, 0, -7),
	}
	s.Require().NoError(s.remits.Upsert(s.ctx, r))

	s.sched.runDaily(s.ctx, s.now)

	row, err := s.remits.Get(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(remittance.PaymentOverdue, row.PaymentStatus)
	// 7 days overdue is the reminder boundary, so the sweep alerts it.
	s.Contains(s.email.recipients(), "treasurer@local77.example")
}

func (s *SchedulerSuite) TestRunTicks() {
	s.seedOrg("Local 15", "treasurer@local15.example", 15)

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.sched.interval = time.Millisecond
	done := make(chan struct{})
	go func() {
		s.sched.Run(ctx)
		close(done)
	}()

	s.Eventually(func() bool {
		return len(s.email.recipients()) == 1
	}, time.Second, 5*time.Millisecond)

	// Clock is pinned, so later ticks land on the same day and month and
	// must not repeat the work.
	time.Sleep(20 * time.Millisecond)
	s.Len(s.email.recipients(), 1)

	cancel()
	<-done
}
