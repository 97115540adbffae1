package ws

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/studyorbit/squadsync-backend/internal/repository"
)

// ClientConnection wraps a WebSocket connection with metadata
type ClientConnection struct {
	Conn       *websocket.Conn
	SquadID    uint
	ProfileID  uint
	LastPong   time.Time
	PingTicker *time.Ticker
	CloseChan  chan struct{}
}

// Hub manages squad-scoped presence channels. Every connection belongs
// to exactly one squad; presence is recomputed as the full online set on
// every change, no incremental diffing.
type Hub struct {
	squads      map[uint]map[uint]*ClientConnection
	clientsMux  sync.RWMutex
	profileRepo repository.ProfileRepositoryInterface

	pingInterval    time.Duration
	pongTimeout     time.Duration
	persistInterval time.Duration
}

// NewHub creates a new Hub instance
func NewHub(profileRepo repository.ProfileRepositoryInterface) *Hub {
	hub := &Hub{
		squads:          make(map[uint]map[uint]*ClientConnection),
		profileRepo:     profileRepo,
		pingInterval:    30 * time.Second,
		pongTimeout:     90 * time.Second,
		persistInterval: time.Minute,
	}

	// Start background workers
	go hub.connectionHealthChecker()
	go hub.lastActivePersister()

	return hub
}

// Register adds a member connection to its squad's presence channel.
// Alongside the ephemeral presence set, a durable last-active timestamp
// is written to the profile row so offline members still show a
// meaningful "last seen".
func (h *Hub) Register(squadID, profileID uint, conn *websocket.Conn) {
	clientConn := &ClientConnection{
		Conn:       conn,
		SquadID:    squadID,
		ProfileID:  profileID,
		LastPong:   time.Now(),
		PingTicker: time.NewTicker(h.pingInterval),
		CloseChan:  make(chan struct{}),
	}

	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
		h.clientsMux.Lock()
		if squad, exists := h.squads[squadID]; exists {
			if client, ok := squad[profileID]; ok {
				client.LastPong = time.Now()
			}
		}
		h.clientsMux.Unlock()
		return nil
	})

	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	total := h.attach(clientConn)

	if h.profileRepo != nil {
		if err := h.profileRepo.TouchLastActive(profileID, time.Now()); err != nil {
			log.Printf("Failed to persist last_active for profile %d: %v", profileID, err)
		}
	}

	go h.pingRoutine(clientConn)

	log.Printf("Profile %d joined squad %d presence channel (online: %d)", profileID, squadID, total)
	h.BroadcastPresence(squadID)
}

// attach installs a connection in its squad channel. A reconnect for
// the same member retires the previous connection first, so the stale
// ping routine cannot evict the replacement on its failed write.
func (h *Hub) attach(client *ClientConnection) int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	squad, exists := h.squads[client.SquadID]
	if !exists {
		squad = make(map[uint]*ClientConnection)
		h.squads[client.SquadID] = squad
	}
	if old, ok := squad[client.ProfileID]; ok {
		if old.PingTicker != nil {
			old.PingTicker.Stop()
		}
		close(old.CloseChan)
		if old.Conn != nil {
			old.Conn.Close()
		}
	}
	squad[client.ProfileID] = client
	return len(squad)
}

// Unregister removes a member connection and re-broadcasts presence.
func (h *Hub) Unregister(squadID, profileID uint) {
	h.clientsMux.Lock()
	squad, exists := h.squads[squadID]
	if exists {
		if client, ok := squad[profileID]; ok {
			if client.PingTicker != nil {
				client.PingTicker.Stop()
			}
			close(client.CloseChan)
			delete(squad, profileID)
		}
		if len(squad) == 0 {
			delete(h.squads, squadID)
		}
	}
	h.clientsMux.Unlock()

	log.Printf("Profile %d left squad %d presence channel", profileID, squadID)
	h.BroadcastPresence(squadID)
}

// IsOnline checks if a profile is connected to its squad channel
func (h *Hub) IsOnline(squadID, profileID uint) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	squad, exists := h.squads[squadID]
	if !exists {
		return false
	}
	_, ok := squad[profileID]
	return ok
}

// OnlineMembers returns the full online-id set for a squad, sorted for
// stable payloads.
func (h *Hub) OnlineMembers(squadID uint) []uint {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	squad, exists := h.squads[squadID]
	if !exists {
		return []uint{}
	}
	members := make([]uint, 0, len(squad))
	for profileID := range squad {
		members = append(members, profileID)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// BroadcastToSquad sends data to every online member of a squad.
func (h *Hub) BroadcastToSquad(squadID uint, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling broadcast data for squad %d: %v", squadID, err)
		return
	}

	h.clientsMux.RLock()
	squad, exists := h.squads[squadID]
	clients := make([]*ClientConnection, 0, len(squad))
	if exists {
		for _, clientConn := range squad {
			clients = append(clients, clientConn)
		}
	}
	h.clientsMux.RUnlock()

	for _, clientConn := range clients {
		if err := clientConn.Conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
			log.Printf("Error broadcasting to profile %d: %v", clientConn.ProfileID, err)
			h.Unregister(squadID, clientConn.ProfileID)
		}
	}
}

// BroadcastPresence pushes the aggregate online set to the whole squad.
func (h *Hub) BroadcastPresence(squadID uint) {
	h.BroadcastToSquad(squadID, Frame("presence", map[string]interface{}{
		"squad_id": squadID,
		"online":   h.OnlineMembers(squadID),
	}))
}

// Count returns the number of connected clients across all squads
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	total := 0
	for _, squad := range h.squads {
		total += len(squad)
	}
	return total
}

// pingRoutine sends periodic ping messages to keep connection alive
func (h *Hub) pingRoutine(client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for profile %d: %v", client.ProfileID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			if !h.IsOnline(client.SquadID, client.ProfileID) {
				return
			}

			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for profile %d: %v", client.ProfileID, err)
				h.Unregister(client.SquadID, client.ProfileID)
				return
			}
		}
	}
}

// connectionHealthChecker removes connections that stopped answering pings
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		type deadConn struct{ squadID, profileID uint }
		h.clientsMux.RLock()
		dead := make([]deadConn, 0)
		now := time.Now()
		for squadID, squad := range h.squads {
			for profileID, client := range squad {
				if now.Sub(client.LastPong) > h.pongTimeout {
					dead = append(dead, deadConn{squadID, profileID})
				}
			}
		}
		h.clientsMux.RUnlock()

		for _, d := range dead {
			log.Printf("Removing dead connection for profile %d (no pong received)", d.profileID)
			h.Unregister(d.squadID, d.profileID)
		}
	}
}

// lastActivePersister re-persists last-active for every connected
// profile so the durable timestamp stays close to reality.
func (h *Hub) lastActivePersister() {
	if h.profileRepo == nil {
		return
	}
	ticker := time.NewTicker(h.persistInterval)
	defer ticker.Stop()

	for range ticker.C {
		h.clientsMux.RLock()
		online := make([]uint, 0)
		for _, squad := range h.squads {
			for profileID := range squad {
				online = append(online, profileID)
			}
		}
		h.clientsMux.RUnlock()

		now := time.Now()
		for _, profileID := range online {
			if err := h.profileRepo.TouchLastActive(profileID, now); err != nil {
				log.Printf("Failed to persist last_active for profile %d: %v", profileID, err)
			}
		}
	}
}
