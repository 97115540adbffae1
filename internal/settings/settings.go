package settings

import (
	"log"
	"sync"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/repository"
)

// Defaults used when the settings row is absent or the fetch fails.
const (
	DefaultJoinWindow       = 60 * time.Minute
	DefaultGracePeriod      = 45 * time.Minute
	DefaultMaxMembers       = 10
	DefaultSuccessThreshold = 80
)

// DefaultTTL is how long a fetched settings row is trusted before a
// re-read. Deliberately long: these tunables change rarely.
const DefaultTTL = 5 * time.Minute

// Values is an immutable snapshot of the challenge-timing tunables.
type Values struct {
	JoinWindow       time.Duration
	GracePeriod      time.Duration
	MaxMembers       int
	SuccessThreshold int
}

func defaults() Values {
	return Values{
		JoinWindow:       DefaultJoinWindow,
		GracePeriod:      DefaultGracePeriod,
		MaxMembers:       DefaultMaxMembers,
		SuccessThreshold: DefaultSuccessThreshold,
	}
}

// Cache is the read-through settings cache every timing component
// consults. It never blocks a caller on a failed fetch: stale or default
// values are returned instead.
type Cache struct {
	repo repository.SettingsRepositoryInterface
	ttl  time.Duration

	mu        sync.RWMutex
	current   Values
	fetchedAt time.Time
}

func NewCache(repo repository.SettingsRepositoryInterface, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		repo:    repo,
		ttl:     ttl,
		current: defaults(),
	}
}

// Get returns the cached tunables, refreshing from the repository when
// the TTL has lapsed. A failed refresh keeps whatever was served last.
func (c *Cache) Get() Values {
	c.mu.RLock()
	fresh := !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl
	values := c.current
	c.mu.RUnlock()

	if fresh {
		return values
	}
	return c.refresh()
}

func (c *Cache) refresh() Values {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl {
		return c.current
	}

	row, err := c.repo.Get()
	if err != nil {
		log.Printf("settings fetch failed, serving previous values: %v", err)
		// Mark as fetched so a flapping database is not hammered on
		// every deadline computation.
		c.fetchedAt = time.Now()
		return c.current
	}

	c.current = fromRow(row)
	c.fetchedAt = time.Now()
	return c.current
}

// Invalidate forces the next Get to re-read the settings row.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func fromRow(row *models.SquadSettings) Values {
	v := defaults()
	if row == nil {
		return v
	}
	if row.JoinWindowMinutes > 0 {
		v.JoinWindow = time.Duration(row.JoinWindowMinutes) * time.Minute
	}
	if row.GraceMinutes > 0 {
		v.GracePeriod = time.Duration(row.GraceMinutes) * time.Minute
	}
	if row.MaxMembers > 0 {
		v.MaxMembers = row.MaxMembers
	}
	if row.SuccessThresholdPc > 0 && row.SuccessThresholdPc <= 100 {
		v.SuccessThreshold = row.SuccessThresholdPc
	}
	return v
}
