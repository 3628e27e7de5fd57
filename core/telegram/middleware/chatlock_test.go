package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestChatLocksSerializeSameChat(t *testing.T) {
	locks := NewChatLocks()
	var (
		active  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(42)
			defer unlock()
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()
	if overlap.Load() {
		t.Fatal("two updates of the same chat ran concurrently")
	}
	if n := locks.Len(); n != 0 {
		t.Fatalf("locks leaked: %d", n)
	}
}

func TestChatLocksIndependentChats(t *testing.T) {
	locks := NewChatLocks()
	unlockA := locks.Lock(1)
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(2)
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat 2 blocked by chat 1")
	}
	unlockA()
	if n := locks.Len(); n != 0 {
		t.Fatalf("locks leaked: %d", n)
	}
}
