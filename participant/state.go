package participant

import (
	"sync"
	"sync/atomic"

	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
)

type Phase uint8

const (
	Waiting Phase = iota
	Training
	Done
)

// NoRound is the round of a record that was never selected.
const NoRound = -1

func (p Phase) String() string {
	switch p {
	case Waiting:
		return "Waiting"
	case Training:
		return "Training"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// StateRecord is the monitor shared by the driver and the heartbeat. Every
// read or write happens between Acquire and Release; releasing a record that
// was mutated wakes one waiter.
type StateRecord struct {
	mu     sync.Mutex
	cond   *sync.Cond
	locked atomic.Bool

	phase Phase
	round int
	dirty bool
	cause error

	notifications atomic.Uint64
}

func NewStateRecord() *StateRecord {
	r := &StateRecord{
		phase: Waiting,
		round: NoRound,
	}
	r.cond = sync.NewCond(&r.mu)

	return r
}

func (r *StateRecord) Acquire() {
	r.mu.Lock()
	r.locked.Store(true)
}

// Release panics with ErrProtocolViolation when the record is not held.
func (r *StateRecord) Release() {
	if !r.locked.Load() {
		panic(pkgerrors.ErrProtocolViolation)
	}
	if r.dirty {
		r.cond.Signal()
		r.dirty = false
		r.notifications.Add(1)
	}
	r.locked.Store(false)
	r.mu.Unlock()
}

// WithLock runs fn while holding the record.
func (r *StateRecord) WithLock(fn func(*StateRecord) error) error {
	r.Acquire()
	defer r.Release()

	return fn(r)
}

func (r *StateRecord) Lookup() (Phase, int, error) {
	if !r.locked.Load() {
		return 0, 0, pkgerrors.ErrProtocolViolation
	}

	return r.phase, r.round, nil
}

// SetPhase is a no-op once the record is Done.
func (r *StateRecord) SetPhase(p Phase) error {
	if !r.locked.Load() {
		return pkgerrors.ErrProtocolViolation
	}
	if r.phase == Done && p != Done {
		return nil
	}
	r.phase = p
	r.dirty = true

	return nil
}

func (r *StateRecord) SetRound(n int) error {
	if !r.locked.Load() {
		return pkgerrors.ErrProtocolViolation
	}
	if r.phase == Done {
		return nil
	}
	r.round = n
	r.dirty = true

	return nil
}

// WaitUntilSelectedOrDone gives up the record until its phase is Training or
// Done, then takes it back and returns that phase.
func (r *StateRecord) WaitUntilSelectedOrDone() (Phase, error) {
	if !r.locked.Load() {
		return 0, pkgerrors.ErrProtocolViolation
	}

	r.locked.Store(false)
	for r.phase != Training && r.phase != Done {
		r.cond.Wait()
	}
	r.locked.Store(true)

	return r.phase, nil
}

// Terminate forces the record to Done and keeps cause for the waiter. A
// record that already reached Done keeps its original outcome.
func (r *StateRecord) Terminate(cause error) {
	r.Acquire()
	defer r.Release()

	if r.phase == Done {
		return
	}
	r.cause = cause
	r.phase = Done
	r.dirty = true
}

// Err returns the cause passed to Terminate. It requires the record held.
func (r *StateRecord) Err() error {
	if !r.locked.Load() {
		return pkgerrors.ErrProtocolViolation
	}

	return r.cause
}

// Snapshot returns phase and round under a short critical section.
func (r *StateRecord) Snapshot() (Phase, int) {
	r.Acquire()
	defer r.Release()

	return r.phase, r.round
}

// Notifications counts wake signals emitted so far.
func (r *StateRecord) Notifications() uint64 {
	return r.notifications.Load()
}
