package simulation

import "testing"

type fakeSessions int

func (f *fakeSessions) ActiveSessions() int { return int(*f) }

func TestCoordinatorFollowsSessions(t *testing.T) {
	sim := newTestSimulator(nil)
	sessions := fakeSessions(0)
	coord := NewCoordinator(sim, &sessions)

	coord.Sync()
	if sim.Enabled() {
		t.Fatalf("simulator should be disabled without sessions")
	}

	sessions = 2
	coord.Sync()
	if !sim.Enabled() {
		t.Fatalf("simulator should be enabled with active sessions")
	}

	sessions = 0
	coord.Sync()
	if sim.Enabled() {
		t.Fatalf("simulator should be disabled after the last sign-out")
	}
}

func TestIntervalFromString(t *testing.T) {
	cases := map[string]string{
		"":      "5s",
		"2s":    "2s",
		"bogus": "5s",
		"-1s":   "5s",
	}
	for raw, want := range cases {
		if got := IntervalFromString(raw).String(); got != want {
			t.Fatalf("IntervalFromString(%q) = %s, want %s", raw, got, want)
		}
	}
}
