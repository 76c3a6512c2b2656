package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"medreminder/internal/application/dto"
	"medreminder/internal/domain/constant"
	"medreminder/internal/domain/entity"
	"medreminder/internal/domain/gateway"
	"medreminder/internal/domain/repository"
	"medreminder/internal/infrastructure/database/sqlite"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// fakeClock is the part of the clockwork fake clock the tests drive.
type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

func newCache(t *testing.T) repository.CacheRepository {
	t.Helper()
	db, err := sqlite.NewCacheDB(filepath.Join(t.TempDir(), "cache.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.CloseDB(db) })
	return sqlite.NewCacheRepository(db)
}

func at(day, hour, minute, sec int) time.Time {
	return time.Date(2026, 3, day, hour, minute, sec, 0, time.Local)
}

type fakeGateway struct {
	mu    sync.Mutex
	perm  gateway.Permission
	err   error
	shown []gateway.Notification
	// hold makes Show for a tag wait until the channel is closed.
	hold map[string]chan struct{}
}

func (g *fakeGateway) RequestPermission(ctx context.Context) (gateway.Permission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.perm == "" {
		return gateway.PermissionGranted, nil
	}
	return g.perm, nil
}

func (g *fakeGateway) Show(ctx context.Context, n gateway.Notification) (gateway.Handle, error) {
	g.mu.Lock()
	wait := g.hold[n.Tag]
	g.mu.Unlock()
	if wait != nil {
		<-wait
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.shown = append(g.shown, n)
	return gateway.Handle(n.Tag), nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.shown)
}

func (g *fakeGateway) last() gateway.Notification {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shown[len(g.shown)-1]
}

// fakeMessenger records every envelope. It serves as Messenger and ClickForwarder.
type fakeMessenger struct {
	mu        sync.Mutex
	err       error
	sent      []dto.Envelope
	forwarded []dto.Envelope
}

func (m *fakeMessenger) Send(ctx context.Context, env dto.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, env)
	return nil
}

func (m *fakeMessenger) Forward(ctx context.Context, env dto.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwarded = append(m.forwarded, env)
	return nil
}

func (m *fakeMessenger) ofType(t dto.MessageType) []dto.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dto.Envelope
	for _, env := range m.sent {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

type fakeLookup struct {
	err error
}

func (l *fakeLookup) Get(ctx context.Context, id string) (*entity.Reminder, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &entity.Reminder{ID: id}, nil
}

type fakeSource struct {
	mu        sync.Mutex
	reminders []*entity.Reminder
	err       error
}

func (s *fakeSource) List(ctx context.Context, owner string) ([]*entity.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.reminders, nil
}

func (s *fakeSource) set(reminders ...*entity.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = reminders
}

type fakePlayer struct {
	mu      sync.Mutex
	playing map[string]constant.Sound
	plays   int
}

func (p *fakePlayer) Play(id string, sound constant.Sound, volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing == nil {
		p.playing = make(map[string]constant.Sound)
	}
	p.playing[id] = sound
	p.plays++
}

func (p *fakePlayer) Stop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.playing, id)
}

func (p *fakePlayer) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = nil
}

func (p *fakePlayer) isPlaying(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.playing[id]
	return ok
}

func (p *fakePlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

type fakeToaster struct {
	mu     sync.Mutex
	toasts []gateway.Toast
}

func (f *fakeToaster) Toast(t gateway.Toast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, t)
}

func (f *fakeToaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.toasts)
}

type memPrefs struct {
	mu    sync.Mutex
	prefs entity.Preferences
}

func (m *memPrefs) Load(ctx context.Context) (entity.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs, nil
}

func (m *memPrefs) Save(ctx context.Context, prefs entity.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = prefs
	return nil
}

func strPtr(s string) *string { return &s }
