package service

import (
	"errors"
	"testing"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/cache"
	"github.com/studyorbit/squadsync-backend/internal/models"
)

type challengeFixture struct {
	service       *ChallengeService
	challengeRepo *MockChallengeRepository
	eventRepo     *MockEventRepository
	squadRepo     *MockSquadRepository
	clock         *fakeClock
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

// newChallengeFixture wires a service over in-memory repos with a squad
// of the given member count. Profile IDs are 1..members; profile 1 owns.
func newChallengeFixture(t *testing.T, members int, row *models.SquadSettings) *challengeFixture {
	t.Helper()

	clock := &fakeClock{current: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	squadRepo := NewMockSquadRepository()
	squadRepo.now = clock.Now
	squad := &models.Squad{Name: "Study Squad", ShareCode: "ABCD1234", OwnerID: 1}
	if err := squadRepo.Create(squad); err != nil {
		t.Fatalf("create squad: %v", err)
	}
	for i := 1; i <= members; i++ {
		role := models.RoleMember
		if i == 1 {
			role = models.RoleOwner
		}
		if err := squadRepo.AddMember(squad.ID, uint(i), role); err != nil {
			t.Fatalf("add member %d: %v", i, err)
		}
	}

	challengeRepo := NewMockChallengeRepository()
	challengeRepo.now = clock.Now
	eventRepo := NewMockEventRepository()
	eventRepo.now = clock.Now

	svc := NewChallengeService(challengeRepo, eventRepo, squadRepo, newTestSettings(row), cache.NewSquadCache(nil))
	svc.now = clock.Now

	return &challengeFixture{
		service:       svc,
		challengeRepo: challengeRepo,
		eventRepo:     eventRepo,
		squadRepo:     squadRepo,
		clock:         clock,
	}
}

func (f *challengeFixture) start(t *testing.T) *models.Challenge {
	t.Helper()
	challenge, err := f.service.Start(1, 42, 1)
	if err != nil {
		t.Fatalf("start challenge: %v", err)
	}
	return challenge
}

func TestStartChallenge(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)

	challenge := f.start(t)
	if challenge.Status != models.ChallengeActive {
		t.Errorf("expected active status, got %s", challenge.Status)
	}

	// Starting announces to the squad feed.
	announcements, err := f.eventRepo.FindAnnouncements(1, 5)
	if err != nil {
		t.Fatalf("find announcements: %v", err)
	}
	if len(announcements) != 1 {
		t.Fatalf("expected 1 announcement, got %d", len(announcements))
	}
	if announcements[0].ExamID == nil || *announcements[0].ExamID != 42 {
		t.Errorf("announcement should carry the exam id")
	}
}

func TestStartChallengeRejectsSecondActive(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	f.start(t)

	if _, err := f.service.Start(1, 43, 2); !errors.Is(err, ErrChallengeActive) {
		t.Errorf("expected ErrChallengeActive, got %v", err)
	}
}

func TestStartChallengeRequiresMembership(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)

	if _, err := f.service.Start(1, 42, 99); !errors.Is(err, ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestJoinChallenge(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	if err := f.service.Join(challenge.ID, 2); err != nil {
		t.Fatalf("join: %v", err)
	}

	progress, err := f.service.Progress(challenge.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(progress.Participants) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(progress.Participants))
	}
	if progress.Participants[0].State != models.ParticipantJoined {
		t.Errorf("expected joined state, got %s", progress.Participants[0].State)
	}
}

func TestJoinChallengeIdempotent(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	for i := 0; i < 3; i++ {
		if err := f.service.Join(challenge.ID, 2); err != nil {
			t.Fatalf("join attempt %d: %v", i, err)
		}
	}

	progress, _ := f.service.Progress(challenge.ID)
	if len(progress.Participants) != 1 {
		t.Errorf("repeat joins should not add participants, got %d", len(progress.Participants))
	}
}

func TestJoinClosedAfterWindow(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	// Default join window is 60 minutes.
	f.clock.Advance(61 * time.Minute)

	if err := f.service.Join(challenge.ID, 2); !errors.Is(err, ErrJoinClosed) {
		t.Errorf("expected ErrJoinClosed, got %v", err)
	}
}

func TestFinishAcceptedDuringGrace(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	if err := f.service.Join(challenge.ID, 2); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Past the join window but within grace; the challenge is still
	// active, so the finish lands.
	f.clock.Advance(90 * time.Minute)
	if err := f.service.Finish(challenge.ID, 2, 85); err != nil {
		t.Fatalf("finish during grace: %v", err)
	}

	progress, _ := f.service.Progress(challenge.ID)
	if progress.FinishedCount != 1 {
		t.Errorf("expected 1 finisher, got %d", progress.FinishedCount)
	}
}

func TestFinishSupersedesJoin(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	if err := f.service.Join(challenge.ID, 2); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := f.service.Finish(challenge.ID, 2, 70); err != nil {
		t.Fatalf("finish: %v", err)
	}
	// A stray late join event must not demote the finished state.
	if err := f.service.Join(challenge.ID, 2); err != nil {
		t.Fatalf("re-join: %v", err)
	}

	progress, _ := f.service.Progress(challenge.ID)
	if len(progress.Participants) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(progress.Participants))
	}
	p := progress.Participants[0]
	if p.State != models.ParticipantFinished || p.Score != 70 {
		t.Errorf("finish should win over join: state=%s score=%d", p.State, p.Score)
	}
}

func TestFinishRejectedAfterFinalize(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	f.clock.Advance(2 * time.Hour)
	if _, err := f.service.Finalize(challenge.ID, 1); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if err := f.service.Finish(challenge.ID, 2, 90); !errors.Is(err, ErrChallengeEnded) {
		t.Errorf("expected ErrChallengeEnded, got %v", err)
	}
}

func TestFinalizeRejectedBeforeGrace(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	if _, err := f.service.Finalize(challenge.ID, 2); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly right after start, got %v", err)
	}

	// The rejected finalize must leave the challenge joinable.
	if err := f.service.Join(challenge.ID, 2); err != nil {
		t.Fatalf("join after rejected finalize: %v", err)
	}

	// Join window closed, grace still running: still too early.
	f.clock.Advance(70 * time.Minute)
	if _, err := f.service.Finalize(challenge.ID, 2); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly during grace, got %v", err)
	}

	got, err := f.challengeRepo.FindByID(challenge.ID)
	if err != nil {
		t.Fatalf("find challenge: %v", err)
	}
	if got.Status != models.ChallengeActive {
		t.Fatalf("rejected finalize changed status to %s", got.Status)
	}

	// Early termination stays the owner/admin path.
	finalized, err := f.service.ManualEnd(challenge.ID, 1)
	if err != nil {
		t.Fatalf("manual end during grace: %v", err)
	}
	if !finalized.IsTerminal() {
		t.Errorf("manual end left challenge active")
	}
}

func TestFinalizeRequiresMembership(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	f.clock.Advance(2 * time.Hour)
	if _, err := f.service.Finalize(challenge.ID, 99); !errors.Is(err, ErrNotMember) {
		t.Errorf("expected ErrNotMember for outsider, got %v", err)
	}
}

func TestRequiredFinishers(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		members   int
		want      int
	}{
		{"75 percent of 10", 75, 10, 8},
		{"75 percent of 3", 75, 3, 3},
		{"80 percent of 5", 80, 5, 4},
		{"100 percent of 4", 100, 4, 4},
		{"exact division", 50, 4, 2},
		{"single member", 80, 1, 1},
		{"empty squad", 80, 0, 0},
		{"zero threshold", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiredFinishers(tt.threshold, tt.members); got != tt.want {
				t.Errorf("RequiredFinishers(%d, %d) = %d, want %d", tt.threshold, tt.members, got, tt.want)
			}
		})
	}
}

func TestFinalizeSuccessAwardsPointsOnce(t *testing.T) {
	// 75% of 4 members rounds up to 3 required finishers.
	row := &models.SquadSettings{JoinWindowMinutes: 60, GraceMinutes: 45, MaxMembers: 10, SuccessThresholdPc: 75}
	f := newChallengeFixture(t, 4, row)
	challenge := f.start(t)

	for _, profileID := range []uint{1, 2, 3} {
		if err := f.service.Finish(challenge.ID, profileID, 80); err != nil {
			t.Fatalf("finish for %d: %v", profileID, err)
		}
	}

	f.clock.Advance(2 * time.Hour)
	finalized, err := f.service.Finalize(challenge.ID, 2)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if finalized.Status != models.ChallengeCompleted {
		t.Errorf("expected completed, got %s", finalized.Status)
	}
	if finalized.AwardedPoints != DefaultAwardPoints {
		t.Errorf("expected %d points awarded, got %d", DefaultAwardPoints, finalized.AwardedPoints)
	}

	squad, _ := f.squadRepo.FindByID(1)
	if squad.Points != DefaultAwardPoints {
		t.Errorf("squad points = %d, want %d", squad.Points, DefaultAwardPoints)
	}

	// Losing the finalize race is benign and must not double-award.
	if _, err := f.service.Finalize(challenge.ID, 3); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("expected ErrAlreadyFinalized, got %v", err)
	}
	squad, _ = f.squadRepo.FindByID(1)
	if squad.Points != DefaultAwardPoints {
		t.Errorf("second finalize changed points: %d", squad.Points)
	}
}

func TestSuccessObservableBeforeFinalize(t *testing.T) {
	// 75% of 4 members rounds up to 3: the third finish flips Succeeded
	// in live progress, without waiting for finalization.
	row := &models.SquadSettings{JoinWindowMinutes: 60, GraceMinutes: 45, MaxMembers: 10, SuccessThresholdPc: 75}
	f := newChallengeFixture(t, 4, row)
	challenge := f.start(t)

	for _, profileID := range []uint{1, 2} {
		if err := f.service.Finish(challenge.ID, profileID, 80); err != nil {
			t.Fatalf("finish for %d: %v", profileID, err)
		}
	}
	progress, err := f.service.Progress(challenge.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Succeeded {
		t.Fatalf("2 of 3 required finishes reported success")
	}

	if err := f.service.Finish(challenge.ID, 3, 80); err != nil {
		t.Fatalf("third finish: %v", err)
	}
	progress, err = f.service.Progress(challenge.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !progress.Succeeded {
		t.Errorf("third finish should report success while the challenge runs")
	}

	got, _ := f.challengeRepo.FindByID(challenge.ID)
	if got.Status != models.ChallengeActive {
		t.Errorf("observing success must not finalize, status = %s", got.Status)
	}
}

func TestFinalizeBelowThresholdExpires(t *testing.T) {
	row := &models.SquadSettings{JoinWindowMinutes: 60, GraceMinutes: 45, MaxMembers: 10, SuccessThresholdPc: 75}
	f := newChallengeFixture(t, 4, row)
	challenge := f.start(t)

	// Only 2 of the required 3 finish.
	for _, profileID := range []uint{1, 2} {
		if err := f.service.Finish(challenge.ID, profileID, 60); err != nil {
			t.Fatalf("finish for %d: %v", profileID, err)
		}
	}

	f.clock.Advance(2 * time.Hour)
	finalized, err := f.service.Finalize(challenge.ID, 2)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if finalized.Status != models.ChallengeExpired {
		t.Errorf("expected expired, got %s", finalized.Status)
	}
	if finalized.AwardedPoints != 0 {
		t.Errorf("failed challenge awarded %d points", finalized.AwardedPoints)
	}

	squad, _ := f.squadRepo.FindByID(1)
	if squad.Points != 0 {
		t.Errorf("squad points = %d, want 0", squad.Points)
	}
}

func TestManualEndRequiresAdmin(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	if _, err := f.service.ManualEnd(challenge.ID, 2); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for plain member, got %v", err)
	}

	finalized, err := f.service.ManualEnd(challenge.ID, 1)
	if err != nil {
		t.Fatalf("manual end by owner: %v", err)
	}
	if !finalized.IsTerminal() {
		t.Errorf("manual end left challenge active")
	}
}

func TestFindOverdue(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	overdue, err := f.service.FindOverdue(10)
	if err != nil {
		t.Fatalf("find overdue: %v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("fresh challenge reported overdue")
	}

	// Past join window + grace (60 + 45 minutes default).
	f.clock.Advance(106 * time.Minute)
	overdue, err = f.service.FindOverdue(10)
	if err != nil {
		t.Fatalf("find overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != challenge.ID {
		t.Fatalf("expected challenge %d overdue, got %v", challenge.ID, overdue)
	}
}

func TestDeadlinesFollowSettings(t *testing.T) {
	row := &models.SquadSettings{JoinWindowMinutes: 30, GraceMinutes: 15, MaxMembers: 10, SuccessThresholdPc: 80}
	f := newChallengeFixture(t, 3, row)
	challenge := f.start(t)

	// Rows created through the mocks carry the fixture clock, not the
	// wall clock, so deadline math stays on one timeline.
	if !challenge.CreatedAt.Equal(f.clock.current) {
		t.Fatalf("created at = %v, want fixture clock %v", challenge.CreatedAt, f.clock.current)
	}

	wantJoin := challenge.CreatedAt.Add(30 * time.Minute)
	if got := f.service.JoinDeadline(challenge); !got.Equal(wantJoin) {
		t.Errorf("join deadline = %v, want %v", got, wantJoin)
	}
	wantGrace := challenge.CreatedAt.Add(45 * time.Minute)
	if got := f.service.GraceDeadline(challenge); !got.Equal(wantGrace) {
		t.Errorf("grace deadline = %v, want %v", got, wantGrace)
	}
}

func TestObserveSummary(t *testing.T) {
	f := newChallengeFixture(t, 3, nil)
	challenge := f.start(t)

	// Active challenge: no popup yet.
	summary, err := f.service.ObserveSummary(challenge.ID, 2)
	if err != nil {
		t.Fatalf("observe active: %v", err)
	}
	if summary.ShowSummary {
		t.Errorf("active challenge should not trigger the summary popup")
	}

	f.clock.Advance(2 * time.Hour)
	if _, err := f.service.Finalize(challenge.ID, 2); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	summary, err = f.service.ObserveSummary(challenge.ID, 2)
	if err != nil {
		t.Fatalf("observe terminal: %v", err)
	}
	if !summary.ShowSummary {
		t.Errorf("first observation after finalize should show the summary")
	}
	if summary.Challenge == nil || !summary.Challenge.IsTerminal() {
		t.Errorf("summary should carry the terminal challenge")
	}
}
