// Package sound plays alarm sounds on the terminal bell.
package sound

import (
	"fmt"
	"io"
	"medreminder/internal/domain/constant"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Bell rings the terminal bell in a loop until stopped or until the timeout elapses.
// Volume scales nothing on a terminal; zero mutes.
type Bell struct {
	out      io.Writer
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	playing map[string]chan struct{}
	wg      sync.WaitGroup
}

// NewBell creates a Bell ringing every interval for at most timeout.
func NewBell(out io.Writer, clock clockwork.Clock, interval, timeout time.Duration) *Bell {
	return &Bell{
		out:      out,
		clock:    clock,
		interval: interval,
		timeout:  timeout,
		playing:  make(map[string]chan struct{}),
	}
}

// Play starts the loop for reminderID. A reminder already ringing is left alone.
func (b *Bell) Play(reminderID string, s constant.Sound, volume float64) {
	if volume <= 0 {
		return
	}
	b.mu.Lock()
	if _, ok := b.playing[reminderID]; ok {
		b.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	b.playing[reminderID] = stop
	b.mu.Unlock()

	b.wg.Add(1)
	go b.loop(reminderID, s, stop)
}

func (b *Bell) loop(reminderID string, s constant.Sound, stop chan struct{}) {
	defer b.wg.Done()
	defer b.release(reminderID, stop)

	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()
	deadline := b.clock.After(b.timeout)

	b.ring(s)
	for {
		select {
		case <-stop:
			return
		case <-deadline:
			return
		case <-ticker.Chan():
			b.ring(s)
		}
	}
}

func (b *Bell) ring(s constant.Sound) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, "\a♪ %s\n", s.Name)
}

// release forgets reminderID if stop still belongs to it.
func (b *Bell) release(reminderID string, stop chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.playing[reminderID]; ok && cur == stop {
		delete(b.playing, reminderID)
	}
}

// Stop ends the loop for reminderID.
func (b *Bell) Stop(reminderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if stop, ok := b.playing[reminderID]; ok {
		close(stop)
		delete(b.playing, reminderID)
	}
}

// StopAll ends every loop and waits for them to exit.
func (b *Bell) StopAll() {
	b.mu.Lock()
	for id, stop := range b.playing {
		close(stop)
		delete(b.playing, id)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

// Playing reports whether reminderID is ringing.
func (b *Bell) Playing(reminderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.playing[reminderID]
	return ok
}
