package homekit

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/nerrad567/homekit-room-sync/internal/registry"
)

func newTestCoordinator(t *testing.T, bridgeID string, reloader Reloader) *Coordinator {
	t.Helper()
	store := writeStateFixture(t, t.TempDir(), bridgeID, fixtureState)
	return NewCoordinator(bridgeID, "", 50*time.Millisecond,
		&fakeSnapshots{snap: kitchenSnapshot()}, store, reloader)
}

func TestManagerRegister(t *testing.T) {
	m := NewManager()
	c := newTestCoordinator(t, "main", &fakeReloader{})

	if err := m.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := m.Register(c); err == nil {
		t.Error("Register() second time error = nil, want duplicate error")
	}

	if got, ok := m.Get("main"); !ok || got != c {
		t.Errorf("Get(main) = %v, %v", got, ok)
	}
	if _, ok := m.Get("other"); ok {
		t.Error("Get(other) = true, want false")
	}
}

func TestManagerBridgesSorted(t *testing.T) {
	m := NewManager()
	for _, id := range []string{"zulu", "alpha", "mike"} {
		if err := m.Register(newTestCoordinator(t, id, &fakeReloader{})); err != nil {
			t.Fatalf("Register(%s) error = %v", id, err)
		}
	}

	want := []string{"alpha", "mike", "zulu"}
	if got := m.Bridges(); !reflect.DeepEqual(got, want) {
		t.Errorf("Bridges() = %v, want %v", got, want)
	}
}

func TestManagerNotifyAllIndependentBridges(t *testing.T) {
	m := NewManager()
	reloaderA := &fakeReloader{}
	reloaderB := &fakeReloader{}
	if err := m.Register(newTestCoordinator(t, "alpha", reloaderA)); err != nil {
		t.Fatalf("Register(alpha) error = %v", err)
	}
	if err := m.Register(newTestCoordinator(t, "beta", reloaderB)); err != nil {
		t.Fatalf("Register(beta) error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	ev := registry.Event{Type: registry.EventAreaRegistryUpdated, Action: registry.ActionUpdate, ID: "kitchen"}
	m.NotifyAll(ev)

	time.Sleep(400 * time.Millisecond)

	if got := reloaderA.callCount(); got != 1 {
		t.Errorf("alpha reload calls = %d, want 1", got)
	}
	if got := reloaderB.callCount(); got != 1 {
		t.Errorf("beta reload calls = %d, want 1", got)
	}
}

func TestManagerSyncAll(t *testing.T) {
	m := NewManager()
	reloader := &fakeReloader{}
	c := newTestCoordinator(t, "main", reloader)
	if err := m.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	startCoordinator(t, c)

	m.SyncAll(context.Background())

	if got := reloader.callCount(); got != 1 {
		t.Errorf("reload calls = %d, want 1 after startup sync", got)
	}
}
