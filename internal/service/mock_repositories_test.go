package service

import (
	"sort"
	"strings"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/settings"
	"gorm.io/gorm"
)

// In-memory mocks shared across the service tests. They return
// gorm.ErrRecordNotFound where the real repositories would, since the
// services branch on it. Each mock that stamps CreatedAt carries a
// swappable now so fixtures with a fake clock keep row timestamps and
// service deadlines on the same timeline.

type MockSquadRepository struct {
	squads      map[uint]*models.Squad
	memberships map[uint]map[uint]models.SquadRole
	nextID      uint
	now         func() time.Time
}

func NewMockSquadRepository() *MockSquadRepository {
	return &MockSquadRepository{
		squads:      make(map[uint]*models.Squad),
		memberships: make(map[uint]map[uint]models.SquadRole),
		nextID:      1,
		now:         time.Now,
	}
}

func (m *MockSquadRepository) Create(squad *models.Squad) error {
	if squad.ID == 0 {
		squad.ID = m.nextID
		m.nextID++
	}
	if squad.CreatedAt.IsZero() {
		squad.CreatedAt = m.now()
	}
	m.squads[squad.ID] = squad
	return nil
}

func (m *MockSquadRepository) FindByID(id uint) (*models.Squad, error) {
	if s, ok := m.squads[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockSquadRepository) FindByCodePrefix(prefix string, limit int) ([]models.Squad, error) {
	var out []models.Squad
	for _, s := range m.squads {
		if strings.HasPrefix(s.ShareCode, prefix) {
			out = append(out, *s)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockSquadRepository) Rename(squadID uint, name string) error {
	s, ok := m.squads[squadID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Name = name
	return nil
}

func (m *MockSquadRepository) TransferOwnership(squadID, newOwnerID uint) error {
	s, ok := m.squads[squadID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if members, ok := m.memberships[squadID]; ok {
		members[s.OwnerID] = models.RoleMember
		members[newOwnerID] = models.RoleOwner
	}
	s.OwnerID = newOwnerID
	return nil
}

func (m *MockSquadRepository) AddPoints(squadID uint, delta int) error {
	s, ok := m.squads[squadID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Points += delta
	return nil
}

func (m *MockSquadRepository) AddMember(squadID, profileID uint, role models.SquadRole) error {
	if _, ok := m.memberships[squadID]; !ok {
		m.memberships[squadID] = make(map[uint]models.SquadRole)
	}
	m.memberships[squadID][profileID] = role
	return nil
}

func (m *MockSquadRepository) RemoveMember(squadID, profileID uint) error {
	if members, ok := m.memberships[squadID]; ok {
		delete(members, profileID)
	}
	return nil
}

func (m *MockSquadRepository) GetMembers(squadID uint) ([]models.Profile, error) {
	members := m.memberships[squadID]
	ids := make([]uint, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Profile{ID: id})
	}
	return out, nil
}

func (m *MockSquadRepository) CountMembers(squadID uint) (int64, error) {
	return int64(len(m.memberships[squadID])), nil
}

func (m *MockSquadRepository) IsMember(squadID, profileID uint) (bool, error) {
	members, ok := m.memberships[squadID]
	if !ok {
		return false, nil
	}
	_, ok = members[profileID]
	return ok, nil
}

func (m *MockSquadRepository) GetMemberRole(squadID, profileID uint) (models.SquadRole, error) {
	if members, ok := m.memberships[squadID]; ok {
		if role, ok := members[profileID]; ok {
			return role, nil
		}
	}
	return "", gorm.ErrRecordNotFound
}

func (m *MockSquadRepository) FindSquadOfProfile(profileID uint) (*models.Squad, error) {
	for squadID, members := range m.memberships {
		if _, ok := members[profileID]; ok {
			return m.FindByID(squadID)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockSquadRepository) DeleteCascade(squadID uint) error {
	delete(m.squads, squadID)
	delete(m.memberships, squadID)
	return nil
}

type MockProfileRepository struct {
	profiles map[uint]*models.Profile
	touched  map[uint]time.Time
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		profiles: make(map[uint]*models.Profile),
		touched:  make(map[uint]time.Time),
	}
}

func (m *MockProfileRepository) Create(profile *models.Profile) error {
	m.profiles[profile.ID] = profile
	return nil
}

func (m *MockProfileRepository) FindByID(id uint) (*models.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockProfileRepository) FindByUsername(username string) (*models.Profile, error) {
	for _, p := range m.profiles {
		if p.Username == username {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockProfileRepository) TouchLastActive(profileID uint, at time.Time) error {
	m.touched[profileID] = at
	return nil
}

type MockMessageRepository struct {
	messages map[uint]*models.ChatMessage
	nextID   uint
	now      func() time.Time
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.ChatMessage),
		nextID:   1,
		now:      time.Now,
	}
}

func (m *MockMessageRepository) Create(message *models.ChatMessage) error {
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = m.now()
	}
	m.messages[message.ID] = message
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.ChatMessage, error) {
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindByClientID(clientID string, senderID uint) (*models.ChatMessage, error) {
	for _, msg := range m.messages {
		if msg.ClientID == clientID && msg.SenderID == senderID {
			return msg, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindSquadMessages(squadID uint, limit int) ([]models.ChatMessage, error) {
	ids := make([]uint, 0, len(m.messages))
	for id, msg := range m.messages {
		if msg.SquadID == squadID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	out := make([]models.ChatMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.messages[id])
	}
	return out, nil
}

func (m *MockMessageRepository) DeleteBySquad(squadID uint) error {
	for id, msg := range m.messages {
		if msg.SquadID == squadID {
			delete(m.messages, id)
		}
	}
	return nil
}

type MockReadReceiptRepository struct {
	batches  [][]models.ReadReceipt
	receipts map[models.ReadReceipt]struct{}
}

func NewMockReadReceiptRepository() *MockReadReceiptRepository {
	return &MockReadReceiptRepository{
		receipts: make(map[models.ReadReceipt]struct{}),
	}
}

func (m *MockReadReceiptRepository) UpsertBatch(receipts []models.ReadReceipt) error {
	m.batches = append(m.batches, receipts)
	for _, r := range receipts {
		m.receipts[models.ReadReceipt{MessageID: r.MessageID, ProfileID: r.ProfileID}] = struct{}{}
	}
	return nil
}

func (m *MockReadReceiptRepository) ListByProfile(squadID, profileID uint) ([]models.ReadReceipt, error) {
	var out []models.ReadReceipt
	for r := range m.receipts {
		if r.ProfileID == profileID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockReadReceiptRepository) CountForMessage(messageID uint) (int64, error) {
	var n int64
	for r := range m.receipts {
		if r.MessageID == messageID {
			n++
		}
	}
	return n, nil
}

type MockEventRepository struct {
	events []models.SquadEvent
	nextID uint
	now    func() time.Time
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{nextID: 1, now: time.Now}
}

func (m *MockEventRepository) Append(event *models.SquadEvent) error {
	if event.ID == 0 {
		event.ID = m.nextID
		m.nextID++
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = m.now()
	}
	m.events = append(m.events, *event)
	return nil
}

func (m *MockEventRepository) FindByChallenge(challengeID uint) ([]models.SquadEvent, error) {
	var out []models.SquadEvent
	for _, ev := range m.events {
		if ev.ChallengeID != nil && *ev.ChallengeID == challengeID && ev.Kind != models.EventAnnouncement {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MockEventRepository) FindAnnouncements(squadID uint, limit int) ([]models.SquadEvent, error) {
	var out []models.SquadEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		if ev.SquadID == squadID && ev.Kind == models.EventAnnouncement {
			out = append(out, ev)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type MockChallengeRepository struct {
	challenges map[uint]*models.Challenge
	nextID     uint
	now        func() time.Time
}

func NewMockChallengeRepository() *MockChallengeRepository {
	return &MockChallengeRepository{
		challenges: make(map[uint]*models.Challenge),
		nextID:     1,
		now:        time.Now,
	}
}

func (m *MockChallengeRepository) Create(challenge *models.Challenge) error {
	if challenge.ID == 0 {
		challenge.ID = m.nextID
		m.nextID++
	}
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = m.now()
	}
	m.challenges[challenge.ID] = challenge
	return nil
}

func (m *MockChallengeRepository) FindByID(id uint) (*models.Challenge, error) {
	if c, ok := m.challenges[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockChallengeRepository) FindActiveBySquad(squadID uint) (*models.Challenge, error) {
	for _, c := range m.challenges {
		if c.SquadID == squadID && c.Status == models.ChallengeActive {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockChallengeRepository) FindExpiredActive(deadline time.Time, limit int) ([]models.Challenge, error) {
	var out []models.Challenge
	for _, c := range m.challenges {
		if c.Status == models.ChallengeActive && c.CreatedAt.Before(deadline) {
			out = append(out, *c)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockChallengeRepository) FinalizeIfActive(challengeID uint, status models.ChallengeStatus, points int, at time.Time) (bool, error) {
	c, ok := m.challenges[challengeID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if c.Status != models.ChallengeActive {
		return false, nil
	}
	c.Status = status
	c.AwardedPoints = points
	c.FinalizedAt = &at
	return true, nil
}

type MockPomodoroRepository struct {
	sessions map[uint]*models.PomodoroSession
}

func NewMockPomodoroRepository() *MockPomodoroRepository {
	return &MockPomodoroRepository{sessions: make(map[uint]*models.PomodoroSession)}
}

func (m *MockPomodoroRepository) Upsert(session *models.PomodoroSession) error {
	copied := *session
	m.sessions[session.SquadID] = &copied
	return nil
}

func (m *MockPomodoroRepository) FindBySquad(squadID uint) (*models.PomodoroSession, error) {
	if s, ok := m.sessions[squadID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockPomodoroRepository) MarkFinished(squadID uint) error {
	s, ok := m.sessions[squadID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = models.PomodoroFinished
	return nil
}

type stubSettingsRepo struct {
	row *models.SquadSettings
}

func (s *stubSettingsRepo) Get() (*models.SquadSettings, error) {
	if s.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.row, nil
}

func (s *stubSettingsRepo) Save(row *models.SquadSettings) error {
	s.row = row
	return nil
}

// newTestSettings builds a settings cache backed by an optional fixed row.
func newTestSettings(row *models.SquadSettings) *settings.Cache {
	return settings.NewCache(&stubSettingsRepo{row: row}, time.Hour)
}
