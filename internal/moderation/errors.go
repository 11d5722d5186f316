package moderation

import "errors"

var (
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrInvalidSetting   = errors.New("invalid setting")
	ErrUnknownKind      = errors.New("unknown restriction kind")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotRestricted    = errors.New("target is not restricted")
	ErrTargetNotFound   = errors.New("target not found")
	ErrTargetNotInVoice = errors.New("target is not connected to voice")
	// ErrTransient wraps platform failures that are neither refusals nor
	// missing targets.
	ErrTransient = errors.New("transient platform error")
)
