// Package guard rate-limits destructive moderator actions so a compromised or
// runaway account cannot empty a guild.
package guard

import (
	"strings"
	"sync"
	"time"
)

// Destructive actions the bot checks before running.
const (
	ActionBan      = "ban"
	ActionKick     = "kick"
	ActionPurge    = "purge"
	ActionLockdown = "lockdown"
)

type Verdict struct {
	Count   int
	Limit   int
	Allowed bool
	// Tripped is set on the first refused action of a burst only, so the
	// caller raises one alert per burst.
	Tripped bool
}

type Guard struct {
	mu      sync.Mutex
	windows map[string]*Window
	span    time.Duration
	limit   int
	enabled bool
	now     func() time.Time
}

func New(limit int, span time.Duration) *Guard {
	g := &Guard{windows: make(map[string]*Window), enabled: true, now: time.Now}
	g.Configure(limit, span)
	return g
}

// Disabled returns a guard that allows everything.
func Disabled() *Guard {
	g := New(0, 0)
	g.enabled = false
	return g
}

// Configure changes the limits. Existing windows are discarded.
func (g *Guard) Configure(limit int, span time.Duration) {
	if limit <= 0 {
		limit = 10
	}
	if span <= 0 {
		span = time.Minute
	}
	g.mu.Lock()
	g.limit = limit
	g.span = span
	g.windows = make(map[string]*Window)
	g.mu.Unlock()
}

// Check records one action by moderatorID and reports whether it may run.
func (g *Guard) Check(guildID, moderatorID, action string) Verdict {
	if !g.enabled {
		return Verdict{Allowed: true}
	}
	key := guildID + ":" + moderatorID + ":" + action
	window, limit := g.window(key)
	count := window.Add(g.now())
	return Verdict{
		Count:   count,
		Limit:   limit,
		Allowed: count <= limit,
		Tripped: count == limit+1,
	}
}

// Forget drops every counter of a guild.
func (g *Guard) Forget(guildID string) {
	prefix := guildID + ":"
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.windows {
		if strings.HasPrefix(key, prefix) {
			delete(g.windows, key)
		}
	}
}

func (g *Guard) window(key string) (*Window, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	window := g.windows[key]
	if window == nil {
		window = NewWindow(g.span)
		g.windows[key] = window
	}
	return window, g.limit
}
