package cache

import (
	"fmt"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for different cache types
const (
	ChatHistoryTTL = 2 * time.Minute
	MemberListTTL  = 2 * time.Minute
	// SummaryMarkerTTL bounds how long a challenge summary stays claimed.
	// Long enough that nobody sees the popup twice in practice.
	SummaryMarkerTTL = 7 * 24 * time.Hour
	AnnouncementsTTL = 30 * time.Second
)

// SquadCache handles squad-scoped caching: chat history, member lists
// and the one-time challenge summary markers. All methods are safe on a
// nil receiver so the service runs without Redis.
type SquadCache struct {
	redis *RedisCache
}

func NewSquadCache(redis *RedisCache) *SquadCache {
	return &SquadCache{redis: redis}
}

func chatHistoryKey(squadID uint) string {
	return fmt.Sprintf("chat:%d", squadID)
}

func memberListKey(squadID uint) string {
	return fmt.Sprintf("members:%d", squadID)
}

func summaryMarkerKey(challengeID, profileID uint) string {
	return fmt.Sprintf("summary:%d:%d", challengeID, profileID)
}

// GetChatHistory retrieves cached squad messages
func (sc *SquadCache) GetChatHistory(squadID uint) ([]models.ChatMessage, bool) {
	if sc == nil || sc.redis == nil {
		return nil, false
	}
	data, err := sc.redis.Get(chatHistoryKey(squadID))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.ChatMessage
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}

	return messages, true
}

// SetChatHistory caches squad messages
func (sc *SquadCache) SetChatHistory(squadID uint, messages []models.ChatMessage) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return sc.redis.Set(chatHistoryKey(squadID), data, ChatHistoryTTL)
}

// InvalidateChatHistory removes a squad's chat history from cache
func (sc *SquadCache) InvalidateChatHistory(squadID uint) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	return sc.redis.Delete(chatHistoryKey(squadID))
}

// GetMemberList retrieves a cached member list
func (sc *SquadCache) GetMemberList(squadID uint) ([]models.Profile, bool) {
	if sc == nil || sc.redis == nil {
		return nil, false
	}
	data, err := sc.redis.Get(memberListKey(squadID))
	if err != nil || data == nil {
		return nil, false
	}

	var members []models.Profile
	if err := msgpack.Unmarshal(data, &members); err != nil {
		return nil, false
	}

	return members, true
}

// SetMemberList caches a squad's member list
func (sc *SquadCache) SetMemberList(squadID uint, members []models.Profile) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(members)
	if err != nil {
		return err
	}
	return sc.redis.Set(memberListKey(squadID), data, MemberListTTL)
}

// InvalidateMemberList removes a squad's member list from cache
func (sc *SquadCache) InvalidateMemberList(squadID uint) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	return sc.redis.Delete(memberListKey(squadID))
}

// AnnouncementsSWR serves the announcements feed stale-while-revalidate:
// a cached feed is returned immediately and refreshed in the background.
// The feed tolerates short staleness; a new announcement also arrives as
// a websocket push.
func (sc *SquadCache) AnnouncementsSWR(squadID uint, limit int, fetch func() ([]models.SquadEvent, error)) ([]models.SquadEvent, bool, error) {
	if sc == nil || sc.redis == nil {
		events, err := fetch()
		return events, false, err
	}
	key := fmt.Sprintf("announcements:%d:%d", squadID, limit)
	return Revalidate(sc.redis, key, AnnouncementsTTL, fetch)
}

// ClaimSummaryShown marks a challenge summary as shown to a profile.
// Returns true for the first caller only; later calls see the marker and
// skip the popup. Without Redis the claim always succeeds, which at worst
// repeats a popup.
func (sc *SquadCache) ClaimSummaryShown(challengeID, profileID uint) bool {
	if sc == nil || sc.redis == nil {
		return true
	}
	won, err := sc.redis.SetNX(summaryMarkerKey(challengeID, profileID), []byte("1"), SummaryMarkerTTL)
	if err != nil {
		return true
	}
	return won
}
