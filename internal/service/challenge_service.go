package service

import (
	"errors"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/cache"
	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/repository"
	"github.com/studyorbit/squadsync-backend/internal/settings"
	"gorm.io/gorm"
)

// DefaultAwardPoints is granted to the squad when a challenge meets its
// success threshold.
const DefaultAwardPoints = 50

type ChallengeService struct {
	challengeRepo repository.ChallengeRepositoryInterface
	eventRepo     repository.EventRepositoryInterface
	squadRepo     repository.SquadRepositoryInterface
	settings      *settings.Cache
	squadCache    *cache.SquadCache
	awardPoints   int

	// now is swappable for deterministic deadline tests.
	now func() time.Time
}

func NewChallengeService(
	challengeRepo repository.ChallengeRepositoryInterface,
	eventRepo repository.EventRepositoryInterface,
	squadRepo repository.SquadRepositoryInterface,
	settingsCache *settings.Cache,
	squadCache *cache.SquadCache,
) *ChallengeService {
	return &ChallengeService{
		challengeRepo: challengeRepo,
		eventRepo:     eventRepo,
		squadRepo:     squadRepo,
		settings:      settingsCache,
		squadCache:    squadCache,
		awardPoints:   DefaultAwardPoints,
		now:           time.Now,
	}
}

// Start creates a squad's timed exam challenge. At most one active
// challenge per squad: creation is rejected while one exists.
func (s *ChallengeService) Start(squadID, examID, creatorID uint) (*models.Challenge, error) {
	isMember, err := s.squadRepo.IsMember(squadID, creatorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotMember
	}

	if _, err := s.challengeRepo.FindActiveBySquad(squadID); err == nil {
		return nil, ErrChallengeActive
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.now()
	challenge := &models.Challenge{
		SquadID:   squadID,
		ExamID:    examID,
		CreatorID: creatorID,
		ExpiresAt: now.Add(s.settings.Get().JoinWindow),
		Status:    models.ChallengeActive,
	}
	if err := s.challengeRepo.Create(challenge); err != nil {
		return nil, err
	}

	// Announce the challenge to the squad feed.
	announcement := &models.SquadEvent{
		SquadID:     squadID,
		ActorID:     creatorID,
		Kind:        models.EventAnnouncement,
		ChallengeID: &challenge.ID,
		ExamID:      &examID,
	}
	if err := s.eventRepo.Append(announcement); err != nil {
		return nil, err
	}

	return challenge, nil
}

// Join records a participant's intent. The expiry check is optimistic:
// it recomputes the deadline from the creation time and the live join
// window, and fails fast once the window has closed.
func (s *ChallengeService) Join(challengeID, profileID uint) error {
	challenge, err := s.challengeRepo.FindByID(challengeID)
	if err != nil {
		return err
	}
	if challenge.IsTerminal() {
		return ErrChallengeEnded
	}

	isMember, err := s.squadRepo.IsMember(challenge.SquadID, profileID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotMember
	}

	if s.now().After(s.JoinDeadline(challenge)) {
		return ErrJoinClosed
	}

	// Repeated joins are no-ops.
	states, err := s.participantStates(challengeID)
	if err != nil {
		return err
	}
	if _, ok := states[profileID]; ok {
		return nil
	}

	return s.eventRepo.Append(&models.SquadEvent{
		SquadID:     challenge.SquadID,
		ActorID:     profileID,
		Kind:        models.EventJoin,
		ChallengeID: &challenge.ID,
	})
}

// Finish records a participant's score. Late finishes are accepted for
// as long as the challenge remains active, which covers the grace
// period; the finalizer is what closes the door.
func (s *ChallengeService) Finish(challengeID, profileID uint, score int) error {
	challenge, err := s.challengeRepo.FindByID(challengeID)
	if err != nil {
		return err
	}
	if challenge.IsTerminal() {
		return ErrChallengeEnded
	}

	isMember, err := s.squadRepo.IsMember(challenge.SquadID, profileID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotMember
	}

	return s.eventRepo.Append(&models.SquadEvent{
		SquadID:     challenge.SquadID,
		ActorID:     profileID,
		Kind:        models.EventFinish,
		ChallengeID: &challenge.ID,
		Score:       &score,
	})
}

// Progress derives the participant list by replaying the challenge's
// event log, keeping the latest state per profile. Success is observable
// the moment the finisher threshold is reached, regardless of when
// finalization happens.
func (s *ChallengeService) Progress(challengeID uint) (*models.ChallengeProgress, error) {
	challenge, err := s.challengeRepo.FindByID(challengeID)
	if err != nil {
		return nil, err
	}

	states, err := s.participantStates(challengeID)
	if err != nil {
		return nil, err
	}

	memberCount, err := s.squadRepo.CountMembers(challenge.SquadID)
	if err != nil {
		return nil, err
	}

	participants := make([]models.Participant, 0, len(states))
	finished := 0
	for _, p := range states {
		if p.State == models.ParticipantFinished {
			finished++
		}
		participants = append(participants, p)
	}

	values := s.settings.Get()
	required := RequiredFinishers(values.SuccessThreshold, int(memberCount))

	return &models.ChallengeProgress{
		ChallengeID:       challengeID,
		SquadID:           challenge.SquadID,
		Participants:      participants,
		FinishedCount:     finished,
		RequiredFinishers: required,
		MemberCount:       int(memberCount),
		Succeeded:         required > 0 && finished >= required,
		ExpiresAt:         s.JoinDeadline(challenge),
		GraceEndsAt:       s.GraceDeadline(challenge),
	}, nil
}

// Finalize is the member-driven finalize path. Early termination stays
// privileged: before the grace deadline only ManualEnd may finalize.
func (s *ChallengeService) Finalize(challengeID, byID uint) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(challengeID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.squadRepo.IsMember(challenge.SquadID, byID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotMember
	}

	if s.now().Before(s.GraceDeadline(challenge)) {
		return nil, ErrTooEarly
	}

	return s.finalize(challengeID)
}

// FinalizeOverdue finalizes without a caller identity once the grace
// deadline has passed. The background sweep uses it.
func (s *ChallengeService) FinalizeOverdue(challengeID uint) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(challengeID)
	if err != nil {
		return nil, err
	}
	if s.now().Before(s.GraceDeadline(challenge)) {
		return nil, ErrTooEarly
	}
	return s.finalize(challengeID)
}

// finalize drives the challenge to its terminal state exactly once.
// Concurrent callers race on a conditional update; losers get
// ErrAlreadyFinalized, which every caller treats as benign. Points are
// awarded by the winner only, and only on success.
func (s *ChallengeService) finalize(challengeID uint) (*models.Challenge, error) {
	progress, err := s.Progress(challengeID)
	if err != nil {
		return nil, err
	}

	status := models.ChallengeExpired
	points := 0
	if progress.Succeeded {
		status = models.ChallengeCompleted
		points = s.awardPoints
	}

	won, err := s.challengeRepo.FinalizeIfActive(challengeID, status, points, s.now())
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrAlreadyFinalized
	}

	challenge, err := s.challengeRepo.FindByID(challengeID)
	if err != nil {
		return nil, err
	}

	if points > 0 {
		if err := s.squadRepo.AddPoints(challenge.SquadID, points); err != nil {
			return nil, err
		}
	}

	return challenge, nil
}

// ManualEnd force-finalizes before natural expiry. Owner/admin only.
func (s *ChallengeService) ManualEnd(challengeID, byID uint) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(challengeID)
	if err != nil {
		return nil, err
	}

	role, err := s.squadRepo.GetMemberRole(challenge.SquadID, byID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && role != models.RoleOwner {
		return nil, ErrForbidden
	}

	return s.finalize(challengeID)
}

// ActiveChallenge returns the squad's active challenge, or nil.
func (s *ChallengeService) ActiveChallenge(squadID uint) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.FindActiveBySquad(squadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return challenge, nil
}

// ChallengeSummary pairs a terminal challenge with a one-time popup flag.
type ChallengeSummary struct {
	Challenge   *models.Challenge         `json:"challenge"`
	Progress    *models.ChallengeProgress `json:"progress"`
	ShowSummary bool                      `json:"show_summary"`
}

// ObserveSummary returns the post-finalization summary. The ShowSummary
// flag is true exactly once per (challenge, profile): a UX guard, not a
// correctness mechanism.
func (s *ChallengeService) ObserveSummary(challengeID, profileID uint) (*ChallengeSummary, error) {
	challenge, err := s.challengeRepo.FindByID(challengeID)
	if err != nil {
		return nil, err
	}
	progress, err := s.Progress(challengeID)
	if err != nil {
		return nil, err
	}

	show := false
	if challenge.IsTerminal() {
		show = s.squadCache.ClaimSummaryShown(challengeID, profileID)
	}

	return &ChallengeSummary{
		Challenge:   challenge,
		Progress:    progress,
		ShowSummary: show,
	}, nil
}

// JoinDeadline recomputes expiry from creation time and the live join
// window. A mid-flight settings change shifts it; accepted behavior.
func (s *ChallengeService) JoinDeadline(challenge *models.Challenge) time.Time {
	return challenge.CreatedAt.Add(s.settings.Get().JoinWindow)
}

// GraceDeadline is the instant after which the finalizer may close the
// challenge.
func (s *ChallengeService) GraceDeadline(challenge *models.Challenge) time.Time {
	values := s.settings.Get()
	return challenge.CreatedAt.Add(values.JoinWindow + values.GracePeriod)
}

// FindOverdue lists active challenges whose grace deadline has passed.
func (s *ChallengeService) FindOverdue(limit int) ([]models.Challenge, error) {
	values := s.settings.Get()
	deadline := s.now().Add(-(values.JoinWindow + values.GracePeriod))
	return s.challengeRepo.FindExpiredActive(deadline, limit)
}

func (s *ChallengeService) participantStates(challengeID uint) (map[uint]models.Participant, error) {
	events, err := s.eventRepo.FindByChallenge(challengeID)
	if err != nil {
		return nil, err
	}

	states := make(map[uint]models.Participant)
	for _, ev := range events {
		switch ev.Kind {
		case models.EventJoin:
			// A finish already recorded for this profile wins.
			if existing, ok := states[ev.ActorID]; ok && existing.State == models.ParticipantFinished {
				continue
			}
			states[ev.ActorID] = models.Participant{
				ProfileID: ev.ActorID,
				State:     models.ParticipantJoined,
			}
		case models.EventFinish:
			score := 0
			if ev.Score != nil {
				score = *ev.Score
			}
			states[ev.ActorID] = models.Participant{
				ProfileID: ev.ActorID,
				State:     models.ParticipantFinished,
				Score:     score,
			}
		}
	}
	return states, nil
}

// RequiredFinishers is ceil(threshold% of memberCount).
func RequiredFinishers(thresholdPercent, memberCount int) int {
	if memberCount <= 0 || thresholdPercent <= 0 {
		return 0
	}
	return (thresholdPercent*memberCount + 99) / 100
}
