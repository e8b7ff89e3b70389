package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestGate_DefaultActive(t *testing.T) {
	var g Gate
	if g.Paused() {
		t.Fatal("zero Gate should be active")
	}
	if g.State() != StateActive {
		t.Errorf("State() = %q, want %q", g.State(), StateActive)
	}
}

func TestGate_Apply(t *testing.T) {
	tests := []struct {
		status string
		want   State
	}{
		{StatusPause, StatePaused},
		{StatusRestart, StateActive},
		{StatusPausar, StatePaused},
		{StatusReiniciar, StateActive},
	}

	g := NewGate()
	for _, tt := range tests {
		got, err := g.Apply(context.Background(), tt.status, "1")
		if err != nil {
			t.Fatalf("Apply(%q) error = %v", tt.status, err)
		}
		if got != tt.want || g.State() != tt.want {
			t.Errorf("Apply(%q) = %q (State %q), want %q", tt.status, got, g.State(), tt.want)
		}
	}
}

func TestGate_ApplyInvalidKeepsState(t *testing.T) {
	g := NewGate()
	if _, err := g.Apply(context.Background(), StatusPause, "1"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for _, status := range []string{"", "PAUSE", "stop", "reiniciar "} {
		state, err := g.Apply(context.Background(), status, "1")
		if !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("Apply(%q) error = %v, want ErrInvalidStatus", status, err)
		}
		if state != StatePaused || !g.Paused() {
			t.Errorf("Apply(%q) changed state to %q", status, state)
		}
	}
}

func TestGate_Observers(t *testing.T) {
	g := NewGate()
	var got []string
	g.Observe(func(_ context.Context, s State, actor string) {
		got = append(got, string(s)+":"+actor)
	})

	g.Apply(context.Background(), StatusPause, "7")   //nolint:errcheck // valid status
	g.Apply(context.Background(), "bogus", "7")       //nolint:errcheck // not observed
	g.Apply(context.Background(), StatusRestart, "8") //nolint:errcheck // valid status

	want := []string{"paused:7", "active:8"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("observed %v, want %v", got, want)
	}
}

func TestGate_ConcurrentAccess(t *testing.T) {
	g := NewGate()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			status := StatusPause
			if i%2 == 0 {
				status = StatusRestart
			}
			g.Apply(context.Background(), status, "x") //nolint:errcheck // valid status
		}(i)
		go func() {
			defer wg.Done()
			_ = g.State()
		}()
	}
	wg.Wait()
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("FromContext(empty) should be nil")
	}
	g := NewGate()
	if FromContext(WithGate(context.Background(), g)) != g {
		t.Error("FromContext did not return the injected gate")
	}
}
