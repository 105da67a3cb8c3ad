package transcript

import (
	"strings"
	"testing"
	"time"
)

func newTest() *Aggregator {
	a := New()
	a.now = func() time.Time { return time.Unix(1700000000, 0) }
	return a
}

func TestAppend_MergesSameRoleFragments(t *testing.T) {
	a := newTest()
	a.Append(RoleUser, "he")
	a.Append(RoleUser, "llo")
	a.SealTurn()
	a.Append(RoleAgent, "hi")

	msgs := a.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Text != "hello" || !msgs[0].Complete {
		t.Errorf("message 0 = %+v, want complete user %q", msgs[0], "hello")
	}
	if msgs[1].Role != RoleAgent || msgs[1].Text != "hi" || msgs[1].Complete {
		t.Errorf("message 1 = %+v, want open agent %q", msgs[1], "hi")
	}
	if msgs[0].ID == msgs[1].ID {
		t.Error("messages share an ID")
	}
}

func TestAppend_RoleSwitchSealsPrevious(t *testing.T) {
	a := newTest()
	a.Append(RoleUser, "where is")
	a.Append(RoleAgent, "the station")

	msgs := a.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if !msgs[0].Complete {
		t.Error("role switch did not seal the previous message")
	}
}

func TestAppend_AfterSealStartsNewMessage(t *testing.T) {
	a := newTest()
	a.Append(RoleAgent, "first turn")
	a.SealTurn()
	a.Append(RoleAgent, "second turn")

	msgs := a.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].Text != "second turn" || msgs[1].Complete {
		t.Errorf("message 1 = %+v, want open %q", msgs[1], "second turn")
	}
}

func TestAppend_IgnoresEmptyFragment(t *testing.T) {
	a := newTest()
	a.Append(RoleUser, "")
	if got := len(a.Messages()); got != 0 {
		t.Errorf("got %d messages, want 0", got)
	}
}

func TestSealTurn_EmptyHistoryIsNoop(t *testing.T) {
	a := newTest()
	a.SealTurn()
	if got := len(a.Messages()); got != 0 {
		t.Errorf("got %d messages, want 0", got)
	}
}

func TestMessagesSnapshotIsIndependent(t *testing.T) {
	a := newTest()
	a.Append(RoleUser, "hi")
	snap := a.Messages()
	a.Append(RoleUser, " there")
	if snap[0].Text != "hi" {
		t.Errorf("snapshot mutated: %q", snap[0].Text)
	}
}

func TestExport(t *testing.T) {
	a := newTest()
	a.Append(RoleUser, "two tacos please")
	a.SealTurn()
	a.Append(RoleAgent, "coming right up")

	got := a.Export()
	want := "user: two tacos please\nagent: coming right up\n"
	if got != want {
		t.Errorf("Export = %q, want %q", got, want)
	}
}

func TestReset(t *testing.T) {
	a := newTest()
	a.Append(RoleUser, "hello")
	a.Reset()
	if got := len(a.Messages()); got != 0 {
		t.Errorf("got %d messages after reset, want 0", got)
	}
	a.Append(RoleAgent, "fresh")
	if got := a.Export(); !strings.Contains(got, "fresh") {
		t.Errorf("Export after reset = %q", got)
	}
}
