package moderation

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies what a restriction does to its target.
type Kind string

const (
	Mute        Kind = "mute"
	Deafen      Kind = "deafen"
	ChannelLock Kind = "lock"
	Slowmode    Kind = "slowmode"
	Ban         Kind = "ban"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{Mute, Deafen, ChannelLock, Slowmode, Ban}

func (k Kind) Valid() bool {
	switch k {
	case Mute, Deafen, ChannelLock, Slowmode, Ban:
		return true
	default:
		return false
	}
}

// TargetsChannel reports whether the target id of this kind is a channel
// rather than a user.
func (k Kind) TargetsChannel() bool {
	return k == ChannelLock || k == Slowmode
}

// Label is the capitalised name used in notifications.
func (k Kind) Label() string {
	switch k {
	case ChannelLock:
		return "Channel lock"
	case Mute, Deafen, Slowmode, Ban:
		s := string(k)
		return strings.ToUpper(s[:1]) + s[1:]
	default:
		return string(k)
	}
}

func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown restriction kind %q", value)
	}
	return kind, nil
}

// Key addresses the single outstanding restriction of one kind on one target.
type Key struct {
	ScopeID  string `json:"scope_id"`
	TargetID string `json:"target_id"`
	Kind     Kind   `json:"kind"`
}

func (k Key) String() string {
	return k.ScopeID + ":" + k.TargetID + ":" + string(k.Kind)
}

// TimedRestriction is one outstanding timed action.
type TimedRestriction struct {
	Key
	ExpiresAt time.Time `json:"expires_at"`
	IssuerID  string    `json:"issuer_id"`
	Reason    string    `json:"reason"`
	// Setting is kind specific: the slowmode delay in seconds, or the days
	// of messages deleted with a ban.
	Setting   int       `json:"setting,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Remaining is the time left before expiry, never negative.
func (r TimedRestriction) Remaining(now time.Time) time.Duration {
	left := r.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
