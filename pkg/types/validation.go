package types

import (
	"regexp"
)

// Compiled once at package initialization; validation runs on every
// inbound connection.
var (
	sessionCodeRegex = regexp.MustCompile(`^[A-Z0-9]{4,12}$`)
	userIDRegex      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// IsValidSessionCode checks the human-shareable code format: 4-12
// uppercase alphanumerics, the shape the session creation UI hands out.
func IsValidSessionCode(code string) bool {
	return sessionCodeRegex.MatchString(code)
}

// IsValidUserID checks if a user ID meets format requirements.
// The 1-50 character limit keeps identifiers displayable and indexable.
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return userIDRegex.MatchString(userID)
}

// IsValidRole checks if the role is one the gateway accepts.
func IsValidRole(role string) bool {
	switch role {
	case RolePlayer, RoleAdmin, RoleDisplay:
		return true
	default:
		return false
	}
}

// IsValidMessageType checks if an inbound message tag is recognized.
// Unknown tags are answered with an error event instead of entering the
// coordinator.
func IsValidMessageType(msgType string) bool {
	switch msgType {
	case MessageTypePing,
		MessageTypeManualReveal,
		MessageTypePause,
		MessageTypeResume,
		MessageTypeEnd,
		MessageTypeBingoClaimed:
		return true
	default:
		return false
	}
}
