package session

import (
	"time"

	"narrated-quiz-service/internal/domain"
)

// Countdown is a single-shot timer with a 1 Hz tick. All fields are owned by the loop.
type Countdown struct {
	id        uint64
	role      domain.CountdownRole
	token     uint64
	duration  time.Duration
	startedAt time.Time
	ticks     int
	remaining int
	onExpire  func()
	timer     Timer
	done      bool
}

// Role reports which countdown slot this is.
func (c *Countdown) Role() domain.CountdownRole {
	return c.role
}

// Token is the sequence token the countdown belongs to.
func (c *Countdown) Token() uint64 {
	return c.token
}

// Remaining is the whole seconds left, rounded up.
func (c *Countdown) Remaining() int {
	return c.remaining
}

// Active reports whether the countdown can still expire.
func (c *Countdown) Active() bool {
	return !c.done
}

// countdowns keeps at most one armed countdown per role.
type countdowns struct {
	clock  Clock
	post   func(ev event)
	onTick func(c *Countdown)
	nextID uint64
	active [domain.CountdownRoles]*Countdown
}

func newCountdowns(clock Clock, post func(ev event)) *countdowns {
	return &countdowns{
		clock:  clock,
		post:   post,
		onTick: func(*Countdown) {},
	}
}

// start arms a countdown for role, cancelling whatever that role had armed.
func (s *countdowns) start(role domain.CountdownRole, token uint64, d time.Duration, onExpire func()) *Countdown {
	s.cancel(s.active[role])

	s.nextID++
	c := &Countdown{
		id:        s.nextID,
		role:      role,
		token:     token,
		duration:  d,
		startedAt: s.clock.Now(),
		remaining: wholeSeconds(d),
		onExpire:  onExpire,
	}
	s.active[role] = c
	s.schedule(c)
	return c
}

// cancel is idempotent and a no-op after expiry.
func (s *countdowns) cancel(c *Countdown) {
	if c == nil || c.done {
		return
	}
	c.done = true
	if c.timer != nil {
		c.timer.Stop()
	}
	if s.active[c.role] == c {
		s.active[c.role] = nil
	}
}

func (s *countdowns) cancelRole(role domain.CountdownRole) {
	s.cancel(s.active[role])
}

func (s *countdowns) cancelAll() {
	for _, c := range s.active {
		s.cancel(c)
	}
}

func (s *countdowns) get(role domain.CountdownRole) *Countdown {
	return s.active[role]
}

func (s *countdowns) remaining(role domain.CountdownRole) int {
	if c := s.active[role]; c != nil {
		return c.remaining
	}
	return 0
}

// schedule arms the next tick. Deadlines derive from the start instant so that loop latency
// does not accumulate.
func (s *countdowns) schedule(c *Countdown) {
	deadline := c.startedAt.Add(time.Duration(c.ticks+1) * time.Second)
	if end := c.startedAt.Add(c.duration); deadline.After(end) {
		deadline = end
	}
	wait := deadline.Sub(s.clock.Now())
	if wait < 0 {
		wait = 0
	}
	id, role := c.id, c.role
	c.timer = s.clock.AfterFunc(wait, func() {
		s.post(countdownTick{id: id, role: role})
	})
}

// handleTick runs on the loop. Ticks for cancelled or replaced countdowns are dropped, so a
// cancellation applied before the tick is processed always wins.
func (s *countdowns) handleTick(ev countdownTick) {
	c := s.active[ev.role]
	if c == nil || c.id != ev.id || c.done {
		return
	}
	c.ticks++
	elapsed := time.Duration(c.ticks) * time.Second
	if elapsed >= c.duration {
		c.remaining = 0
		c.done = true
		s.active[c.role] = nil
		c.onExpire()
		return
	}
	c.remaining = wholeSeconds(c.duration - elapsed)
	s.onTick(c)
	s.schedule(c)
}

func wholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
