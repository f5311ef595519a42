package explorer

import (
	"time"

	"golang.org/x/text/language"
)

// Config holds the runtime knobs of an explorer session.
type Config struct {
	// DebugDelay is added before each reconciled response is folded back.
	DebugDelay time.Duration
	// Local is true when the backend is a local instance. Only local
	// instances can upload assets to the remote platform.
	Local bool
	// PrivateGroupPath identifies the user's own group in GetUserInfo.
	PrivateGroupPath string
	// PrivateGroupName is the display name of the private group.
	PrivateGroupName string
	// Language drives the ordering of names in listings.
	Language language.Tag
}

// DefaultConfig returns the defaults used when no option overrides them.
func DefaultConfig() Config {
	return Config{
		PrivateGroupPath: "private",
		PrivateGroupName: "You",
		Language:         language.English,
	}
}
