// internal/game/clock.go
package game

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/jason-s-yu/tresillo/internal/models"
)

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred calls. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Executor runs room tasks one at a time, in submission order. Execute returns
// false if the task was dropped because the executor has stopped.
type Executor interface {
	Execute(task func()) bool
}

// Mailbox is the production Executor: a buffered queue drained by one goroutine.
type Mailbox struct {
	tasks chan func()
	quit  chan struct{}
	once  sync.Once
}

// NewMailbox starts a mailbox goroutine.
func NewMailbox(size int) *Mailbox {
	m := &Mailbox{
		tasks: make(chan func(), size),
		quit:  make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Mailbox) run() {
	for {
		select {
		case <-m.quit:
			return
		case task := <-m.tasks:
			task()
		}
	}
}

// Execute enqueues task, blocking while the queue is full.
func (m *Mailbox) Execute(task func()) bool {
	select {
	case <-m.quit:
		return false
	default:
	}
	select {
	case m.tasks <- task:
		return true
	case <-m.quit:
		return false
	}
}

// Stop ends the mailbox goroutine. Queued tasks are dropped.
func (m *Mailbox) Stop() {
	m.once.Do(func() { close(m.quit) })
}

// inlineExecutor runs tasks on the caller's goroutine.
type inlineExecutor struct{}

func (inlineExecutor) Execute(task func()) bool {
	task()
	return true
}

// armTimer replaces the room's pending timer with one calling fn after d.
// Every arm or stop bumps timerGen, so a callback that already left the clock
// but lost the race to the executor finds a newer generation and does nothing.
// Assumes the room executor.
func (r *Room) armTimer(d time.Duration, fn func()) {
	r.stopTimer()
	gen := r.timerGen
	r.timer = r.clock.AfterFunc(d, func() {
		r.exec.Execute(func() {
			if r.closed || gen != r.timerGen {
				return
			}
			r.timer = nil
			r.armed = nil
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Errorf("panic in timer callback: %v\n%s", rec, debug.Stack())
				}
			}()
			fn()
		})
	})
}

// stopTimer cancels the pending timer, if any.
func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.armed = nil
	r.timerGen++
}

// turnKey identifies one pending turn. seq moves with every published action, so
// a seat acting twice in a row still gets a fresh deadline.
type turnKey struct {
	seat      models.Seat
	phase     Phase
	synthetic bool
	seq       int
}

// scheduleTurn arms the turn clock for whoever must act. Synthetic seats act after
// a short random delay; human seats get the turn timeout, after which a bot acts
// on their behalf. Nothing is armed while no live client is attached. A timer
// already armed for the same turn is kept, so attaches and detaches that leave the
// turn alone do not extend its deadline.
func (r *Room) scheduleTurn() {
	if !r.state.Phase.awaitsTurn() {
		return
	}
	seat := r.state.Turn
	if seat == "" || r.liveCount() == 0 {
		r.stopTimer()
		return
	}

	occ := r.connAt(seat)
	key := turnKey{seat: seat, phase: r.state.Phase, synthetic: occ == nil || occ.Synthetic(), seq: r.state.Seq}
	if r.timer != nil && r.armed != nil && *r.armed == key {
		return
	}

	var d time.Duration
	if key.synthetic {
		d = r.botDelay()
	} else {
		d = r.rules.TurnTimeout()
		if d <= 0 {
			r.stopTimer()
			return
		}
	}

	phase := r.state.Phase
	r.armTimer(d, func() {
		if r.state.Turn != seat || r.state.Phase != phase {
			return
		}
		r.actFor(seat)
	})
	r.armed = &key
}

func (r *Room) botDelay() time.Duration {
	lo, hi := r.rules.BotDelayMinMs, r.rules.BotDelayMaxMs
	ms := lo
	if hi > lo {
		ms += r.rng.Intn(hi - lo + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

func (r *Room) liveCount() int {
	n := 0
	for _, c := range r.conns {
		if !c.Synthetic() {
			n++
		}
	}
	return n
}
