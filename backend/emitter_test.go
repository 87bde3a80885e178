package backend

import (
	"testing"
	"time"
)

func TestEmitterBuffersUntilSink(t *testing.T) {
	e := NewEmitter(NewQueue(4))
	e.Emit(OutputRemoved{Output: 1})
	e.Emit(OutputRemoved{Output: 2})
	if e.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", e.Pending())
	}

	var got []OutputID
	e.SetSink(func(ev Event) {
		got = append(got, ev.(OutputRemoved).Output)
	})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("delivered %v, want [1 2]", got)
	}
}

func TestEmitterNeverNests(t *testing.T) {
	e := NewEmitter(NewQueue(4))
	depth := 0
	var order []SurfaceID
	e.SetSink(func(ev Event) {
		depth++
		defer func() { depth-- }()
		if depth > 1 {
			t.Errorf("sink entered recursively")
		}
		id := ev.(SurfaceMapped).Surface
		order = append(order, id)
		// A command triggering another callback while handling
		if id == 1 {
			e.Emit(SurfaceMapped{Surface: 3})
		}
	})
	e.Emit(SurfaceMapped{Surface: 1})
	e.Emit(SurfaceMapped{Surface: 2})

	want := []SurfaceID{1, 3, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestEmitterPicksUpPosted(t *testing.T) {
	q := NewQueue(4)
	e := NewEmitter(q)
	var got []EventType
	e.SetSink(func(ev Event) { got = append(got, ev.Type()) })

	if err := q.Send(Deferred{Fn: func() {}}); err != nil {
		t.Fatal(err)
	}
	e.Emit(OutputFrame{Output: 1})
	if len(got) != 2 || got[0] != EventOutputFrame || got[1] != EventDeferred {
		t.Fatalf("got %v, want emitted frame then posted work", got)
	}
}

func TestEmitterStop(t *testing.T) {
	e := NewEmitter(NewQueue(4))
	n := 0
	e.SetSink(func(Event) {
		n++
		e.Stop()
	})
	e.Emit(PointerFrame{})
	e.Emit(PointerFrame{})
	if n != 1 {
		t.Fatalf("handled %d events after stop, want 1", n)
	}
	if !e.Stopped() {
		t.Fatal("emitter not stopped")
	}
}

func TestEmitterLoopDeliversPostedWhileIdle(t *testing.T) {
	q := NewQueue(4)
	e := NewEmitter(q)
	delivered := make(chan struct{})
	e.SetSink(func(ev Event) {
		if d, ok := ev.(Deferred); ok {
			d.Fn()
		}
	})

	// Nothing is emitted after this, only the post from another goroutine
	time.AfterFunc(20*time.Millisecond, func() {
		_ = q.Send(Deferred{Fn: func() {
			close(delivered)
			e.Stop()
		}})
	})

	done := make(chan struct{})
	go func() {
		e.Loop(time.Sleep)
		close(done)
	}()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("posted event never delivered")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop kept running after stop")
	}
}

func TestEmitterLoopEndsWhenQueueCloses(t *testing.T) {
	q := NewQueue(4)
	e := NewEmitter(q)
	e.SetSink(func(Event) {})
	waits := 0
	q.Close()
	e.Loop(func(time.Duration) { waits++ })
	if waits != 0 {
		t.Fatalf("waited %d times on a closed queue", waits)
	}
}
