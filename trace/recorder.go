// Package trace records one row per timer firing without blocking the
// interrupt handler.
package trace

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	ring "github.com/randomizedcoder/go-lock-free-ring"

	"wcet/bench"
)

const (
	ringSize   = 8192
	ringShards = 1

	// Header is the first CSV row written by Drain.
	Header = "iteration,cycle,target,hw1,hw2,latency"
)

// pollInterval is how long Drain sleeps when the ring is empty.
var pollInterval = time.Millisecond

// Recorder is a bench.Observer backed by a lock-free ring. The handler is the
// only producer; Drain is the only consumer.
type Recorder struct {
	push func(bench.Sample) bool
	pop  func() (bench.Sample, bool)

	recorded atomic.Uint64
	dropped  atomic.Uint64
}

// NewRecorder returns an empty Recorder.
func NewRecorder() (*Recorder, error) {
	r, err := ring.NewShardedRing(ringSize, ringShards)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return &Recorder{
		push: func(s bench.Sample) bool { return r.Write(0, s) },
		pop: func() (bench.Sample, bool) {
			v, ok := r.TryRead()
			if !ok {
				return bench.Sample{}, false
			}
			s, ok := v.(bench.Sample)
			return s, ok
		},
	}, nil
}

// Fired queues s. A full ring drops the sample.
func (r *Recorder) Fired(s bench.Sample) {
	if r.push(s) {
		r.recorded.Add(1)
		return
	}
	r.dropped.Add(1)
}

// Recorded returns how many samples were queued.
func (r *Recorder) Recorded() uint64 { return r.recorded.Load() }

// Dropped returns how many samples were lost to a full ring.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Drain writes queued samples to w as CSV until ctx ends, then flushes what
// is left and returns the number of rows written.
func (r *Recorder) Drain(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return 0, err
	}

	n := 0
	for {
		m, err := r.flush(cw)
		n += m
		if err != nil {
			return n, err
		}
		select {
		case <-ctx.Done():
			m, err := r.flush(cw)
			return n + m, err
		case <-time.After(pollInterval):
		}
	}
}

// flush writes every queued sample and flushes cw.
func (r *Recorder) flush(cw *csv.Writer) (int, error) {
	n := 0
	for {
		s, ok := r.pop()
		if !ok {
			break
		}
		if err := cw.Write(row(s)); err != nil {
			return n, err
		}
		n++
	}
	cw.Flush()
	return n, cw.Error()
}

func row(s bench.Sample) []string {
	return []string{
		strconv.Itoa(s.Iteration),
		strconv.FormatUint(uint64(s.Cycle), 10),
		strconv.FormatUint(s.Target, 10),
		strconv.FormatUint(s.HW1, 10),
		strconv.FormatUint(s.HW2, 10),
		strconv.FormatUint(s.Latency, 10),
	}
}
