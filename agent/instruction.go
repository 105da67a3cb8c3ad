package agent

import (
	"strings"

	"go.parlo.dev/parlo/internal/types"
)

// Instruction texts sent as the session's system instruction. The mode fully
// determines the text; for roleplay the scenario picks the opening directive.
const (
	drillInstruction = "You are a pronunciation coach. Propose one word at a " +
		"time for the learner to pronounce. Listen to their attempt; if it is " +
		"wrong, correct it briefly and have them retry, otherwise move on to " +
		"the next word. Keep every reply to one or two short sentences."

	freeTalkInstruction = "You are a friendly conversation partner helping " +
		"someone practice spoken language. Keep the conversation flowing " +
		"naturally, ask follow-up questions, and gently rephrase anything the " +
		"learner says incorrectly."

	stayInCharacter = "Stay in character for the entire conversation. Never " +
		"mention that you are an AI or that this is practice."
)

// Per-scenario opening directives for roleplay mode.
var scenarioInstructions = map[types.Scenario]string{
	types.ScenarioRestaurant: "You are a waiter at a busy restaurant. Greet " +
		"the customer, take their order, answer questions about the menu, and " +
		"bring the check when asked.",
	types.ScenarioDirections: "You are a helpful local on a street corner. " +
		"The learner is a lost tourist; give them directions, landmarks, and " +
		"distances, and answer clarifying questions.",
	types.ScenarioInterview: "You are a hiring manager conducting a job " +
		"interview. Ask the candidate about their background, experience, and " +
		"goals, one question at a time.",
}

const defaultScenarioInstruction = "You are a conversation partner in an " +
	"everyday roleplay of your choosing. Set the scene in your first line."

// BuildInstruction constructs the system instruction for a session config.
func BuildInstruction(mode types.Mode, scenario types.Scenario) string {
	switch mode {
	case types.ModeDrill:
		return drillInstruction
	case types.ModeRoleplay:
		text, ok := scenarioInstructions[scenario]
		if !ok {
			text = defaultScenarioInstruction
		}
		return strings.Join([]string{text, stayInCharacter}, " ")
	default:
		return freeTalkInstruction
	}
}
