// Package txn runs state-changing operations all-or-nothing across every
// ledger of the system and collects the event trail each operation produces.
package txn

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bitfsorg/btcvault-go/events"
)

// Snapshotter is any piece of state that can capture itself and later roll
// back to the captured point.
type Snapshotter interface {
	Snapshot() (restore func())
}

// SnapshotFunc adapts a plain function to Snapshotter.
type SnapshotFunc func() (restore func())

// Snapshot calls f.
func (f SnapshotFunc) Snapshot() func() { return f() }

// Checkpointer is state whose rollback can fail, such as an on-disk store.
type Checkpointer interface {
	Checkpoint() (restore func() error)
}

// ErrRollbackFailed reports that an aborted operation could not put every
// part back. In-memory and durable state may disagree afterwards.
var ErrRollbackFailed = errors.New("txn: rollback failed")

type infallible struct{ s Snapshotter }

func (p infallible) Checkpoint() func() error {
	restore := p.s.Snapshot()
	return func() error {
		restore()
		return nil
	}
}

// Journal coordinates atomic operations. It is not safe for concurrent use;
// the owner serializes calls.
type Journal struct {
	sink  events.Sink
	clock func() time.Time
	parts []Checkpointer

	depth   int
	now     time.Time
	pending []events.Event
	seq     uint64
}

// New creates a journal that commits trails to sink. A nil clock uses
// time.Now; a nil sink discards events.
func New(sink events.Sink, clock func() time.Time) *Journal {
	if sink == nil {
		sink = events.NoopSink{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Journal{sink: sink, clock: clock}
}

// Register adds state that every subsequent operation snapshots.
func (j *Journal) Register(parts ...Snapshotter) {
	for _, p := range parts {
		j.parts = append(j.parts, infallible{p})
	}
}

// RegisterCheckpointer adds state whose rollback reports failure. A failed
// restore is joined to the operation's error as ErrRollbackFailed.
func (j *Journal) RegisterCheckpointer(parts ...Checkpointer) {
	j.parts = append(j.parts, parts...)
}

// SetSeq resumes the envelope sequence after seq, typically the last
// sequence number a durable sink recorded.
func (j *Journal) SetSeq(seq uint64) { j.seq = seq }

// Seq returns the sequence number of the last committed event.
func (j *Journal) Seq() uint64 { return j.seq }

// InOperation reports whether an Atomic call is in progress.
func (j *Journal) InOperation() bool { return j.depth > 0 }

// Now returns the timestamp of the current operation. Every read within one
// operation sees the same instant.
func (j *Journal) Now() time.Time {
	if j.depth > 0 {
		return j.now
	}
	return j.clock()
}

// Emit buffers an event for the current operation. Events are only
// published if the outermost operation commits.
func (j *Journal) Emit(e events.Event) {
	if j.depth == 0 {
		panic(fmt.Sprintf("txn: Emit(%s) outside Atomic", e.Kind()))
	}
	j.pending = append(j.pending, e)
}

// Atomic runs fn as one operation. On success the buffered events are
// committed to the sink; if fn or the sink fails (or fn panics) every
// registered part is restored in reverse order and the events are dropped.
// A nested call joins the enclosing operation.
func (j *Journal) Atomic(fn func() error) (err error) {
	if j.depth > 0 {
		return fn()
	}

	restores := make([]func() error, len(j.parts))
	for i, p := range j.parts {
		restores[i] = p.Checkpoint()
	}
	j.depth = 1
	j.now = j.clock()
	j.pending = nil

	committed := false
	defer func() {
		j.depth = 0
		if committed {
			return
		}
		var failed []error
		for i := len(restores) - 1; i >= 0; i-- {
			if rerr := restores[i](); rerr != nil {
				failed = append(failed, rerr)
			}
		}
		j.pending = nil
		if len(failed) > 0 {
			rerr := fmt.Errorf("%w: %w", ErrRollbackFailed, errors.Join(failed...))
			if err != nil {
				err = errors.Join(err, rerr)
			} else {
				err = rerr
			}
		}
	}()

	if err := fn(); err != nil {
		return err
	}
	if err := j.commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (j *Journal) commit() error {
	if len(j.pending) == 0 {
		return nil
	}
	trail := make([]events.Envelope, len(j.pending))
	for i, e := range j.pending {
		trail[i] = events.Envelope{
			ID:    uuid.New(),
			Seq:   j.seq + uint64(i) + 1,
			At:    j.now,
			Event: e,
		}
	}
	if err := j.sink.Emit(trail); err != nil {
		return fmt.Errorf("txn: commit %d events: %w", len(trail), err)
	}
	j.seq += uint64(len(trail))
	j.pending = nil
	return nil
}
