// Package types provides shared type definitions for the application.
package types

import "fmt"

// Mode selects what kind of practice session to run.
type Mode string

const (
	ModeDrill    Mode = "drill"
	ModeRoleplay Mode = "roleplay"
	ModeFreeTalk Mode = "free-talk"
)

// ParseMode validates a mode string from flags or config.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDrill, ModeRoleplay, ModeFreeTalk:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown practice mode %q", s)
}

// Scenario selects the roleplay setting. Only meaningful in roleplay mode;
// an empty or unrecognized scenario falls back to the default roleplay text.
type Scenario string

const (
	ScenarioRestaurant Scenario = "restaurant"
	ScenarioDirections Scenario = "directions"
	ScenarioInterview  Scenario = "interview"
)

// DefaultVoice is the output voice used when none is configured.
const DefaultVoice = "aoede"
