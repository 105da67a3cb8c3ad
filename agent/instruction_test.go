package agent

import (
	"strings"
	"testing"

	"go.parlo.dev/parlo/internal/types"
)

func TestBuildInstruction_Modes(t *testing.T) {
	tests := []struct {
		name     string
		mode     types.Mode
		scenario types.Scenario
		want     string // substring that must be present
		notWant  string // substring that must be absent
	}{
		{
			name: "drill",
			mode: types.ModeDrill,
			want: "pronunciation coach",
		},
		{
			name: "free talk",
			mode: types.ModeFreeTalk,
			want: "conversation partner",
		},
		{
			name:     "roleplay restaurant",
			mode:     types.ModeRoleplay,
			scenario: types.ScenarioRestaurant,
			want:     "waiter",
			notWant:  "roleplay of your choosing",
		},
		{
			name:     "roleplay directions",
			mode:     types.ModeRoleplay,
			scenario: types.ScenarioDirections,
			want:     "lost tourist",
		},
		{
			name:     "roleplay interview",
			mode:     types.ModeRoleplay,
			scenario: types.ScenarioInterview,
			want:     "hiring manager",
		},
		{
			name:     "roleplay unknown scenario falls back",
			mode:     types.ModeRoleplay,
			scenario: types.Scenario("space-station"),
			want:     "roleplay of your choosing",
		},
		{
			name: "roleplay empty scenario falls back",
			mode: types.ModeRoleplay,
			want: "roleplay of your choosing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildInstruction(tt.mode, tt.scenario)
			if got == "" {
				t.Fatal("instruction is empty")
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("instruction %q does not contain %q", got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("instruction %q contains %q", got, tt.notWant)
			}
		})
	}
}

func TestBuildInstruction_RoleplayStaysInCharacter(t *testing.T) {
	for _, sc := range []types.Scenario{types.ScenarioRestaurant, types.ScenarioDirections, types.ScenarioInterview, ""} {
		got := BuildInstruction(types.ModeRoleplay, sc)
		if !strings.Contains(got, "Stay in character") {
			t.Errorf("scenario %q: missing stay-in-character directive in %q", sc, got)
		}
	}
}
