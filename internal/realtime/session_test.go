package realtime

import (
	"sync"
	"testing"
)

func TestSessionCloseIsIdempotent(t *testing.T) {
	s := newSession(nil)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.close()
		}()
	}
	wg.Wait()

	select {
	case <-s.done:
	default:
		t.Fatal("done channel not closed")
	}
}

func TestSlowSessionDropConcurrentWithClose(t *testing.T) {
	s := newSession(nil)
	for i := 0; i < sendBuffer; i++ {
		s.send <- Message{Event: "price"}
	}

	// A full queue makes every Send take the drop path while other
	// goroutines tear the session down
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Send(Message{Event: "price"})
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.close()
		}()
	}
	wg.Wait()

	select {
	case <-s.done:
	default:
		t.Fatal("done channel not closed")
	}
}
