package moderation

import (
	"context"
	"sort"
	"sync"
	"time"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves time forward and runs every timer that became due, in
// deadline order.
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var due, pending []*fakeTimer
	for _, t := range f.timers {
		if t.stopped {
			continue
		}
		if !t.at.After(f.now) {
			t.fired = true
			due = append(due, t)
			continue
		}
		pending = append(pending, t)
	}
	f.timers = pending
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

func (f *fakeClock) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fakePlatform struct {
	mu          sync.Mutex
	restricted  map[Key]int
	goneScopes  map[string]bool
	goneTargets map[Key]bool
	applyErr    error
	clearErr    error
	checkErr    error
	applies     int
	clears      int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		restricted:  make(map[Key]int),
		goneScopes:  make(map[string]bool),
		goneTargets: make(map[Key]bool),
	}
}

func (p *fakePlatform) ApplyRestriction(_ context.Context, key Key, opts ApplyOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.applyErr != nil {
		return p.applyErr
	}
	p.applies++
	p.restricted[key] = opts.Setting
	return nil
}

func (p *fakePlatform) ClearRestriction(_ context.Context, key Key, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clearErr != nil {
		return p.clearErr
	}
	if _, ok := p.restricted[key]; !ok {
		return ErrNotRestricted
	}
	p.clears++
	delete(p.restricted, key)
	return nil
}

func (p *fakePlatform) IsRestricted(_ context.Context, key Key) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkErr != nil {
		return false, p.checkErr
	}
	_, ok := p.restricted[key]
	return ok, nil
}

func (p *fakePlatform) ResolveScope(_ context.Context, scopeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.goneScopes[scopeID]
}

func (p *fakePlatform) ResolveTarget(_ context.Context, key Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.goneTargets[key]
}

func (p *fakePlatform) isRestricted(key Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.restricted[key]
	return ok
}

// liftManually simulates a moderator clearing the restriction outside the bot.
func (p *fakePlatform) liftManually(key Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.restricted, key)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []TimedRestriction
}

func (n *fakeNotifier) Notify(_ context.Context, r TimedRestriction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, r)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeJournal struct {
	mu   sync.Mutex
	rows map[Key]TimedRestriction
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{rows: make(map[Key]TimedRestriction)}
}

func (j *fakeJournal) SaveRestriction(_ context.Context, r TimedRestriction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows[r.Key] = r
	return nil
}

func (j *fakeJournal) DeleteRestriction(_ context.Context, key Key) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.rows, key)
	return nil
}

func (j *fakeJournal) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.rows)
}
