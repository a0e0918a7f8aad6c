package a2a

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AgentCard describes one registered agent's capabilities — the static
// metadata a caller looks up before dispatching, so it knows which tasks an
// agent accepts without guessing from its id.
type AgentCard struct {
	AgentID      string   `json:"agent_id"`
	AcceptsTasks []string `json:"accepts_tasks"`
	Description  string   `json:"description"`
}

// cardTTL is the agent-card cache lifetime (§5, §9).
const cardTTL = 5 * time.Minute

// CardCache resolves agent cards with a 5-minute TTL. When a redis client is
// supplied it backs the cache (shared across process restarts and multiple
// coordinator instances); otherwise it falls back to an in-process map, the
// way a single-node demo deployment doesn't need a shared cache.
type CardCache struct {
	mu      sync.Mutex
	local   map[string]cachedCard
	redis   *redis.Client
	source  map[string]AgentCard
}

type cachedCard struct {
	card    AgentCard
	expires time.Time
}

// NewCardCache builds a cache backed by source (the static card registry)
// and, optionally, redisClient.
func NewCardCache(source map[string]AgentCard, redisClient *redis.Client) *CardCache {
	return &CardCache{
		local:  make(map[string]cachedCard),
		redis:  redisClient,
		source: source,
	}
}

// Get resolves an agent card, preferring a live cache entry over re-deriving
// it from source.
func (c *CardCache) Get(ctx context.Context, agentID string) (AgentCard, bool) {
	if c.redis != nil {
		if card, ok := c.getRedis(ctx, agentID); ok {
			return card, true
		}
	} else if card, ok := c.getLocal(agentID); ok {
		return card, true
	}

	card, ok := c.source[agentID]
	if !ok {
		return AgentCard{}, false
	}
	c.put(ctx, agentID, card)
	return card, true
}

func (c *CardCache) getLocal(agentID string) (AgentCard, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.local[agentID]
	if !ok || time.Now().After(entry.expires) {
		return AgentCard{}, false
	}
	return entry.card, true
}

func (c *CardCache) getRedis(ctx context.Context, agentID string) (AgentCard, bool) {
	raw, err := c.redis.Get(ctx, redisKey(agentID)).Bytes()
	if err != nil {
		return AgentCard{}, false
	}
	var card AgentCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return AgentCard{}, false
	}
	return card, true
}

func (c *CardCache) put(ctx context.Context, agentID string, card AgentCard) {
	if c.redis != nil {
		if raw, err := json.Marshal(card); err == nil {
			c.redis.Set(ctx, redisKey(agentID), raw, cardTTL)
		}
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[agentID] = cachedCard{card: card, expires: time.Now().Add(cardTTL)}
}

func redisKey(agentID string) string {
	return "vigil:agentcard:" + agentID
}
