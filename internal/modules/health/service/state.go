package service

import (
	"sync/atomic"
	"time"
)

// State holds the liveness signals the runner writes and the health endpoints read.
type State struct {
	now       func() time.Time
	startedAt time.Time

	ready        atomic.Bool
	wsConnected  atomic.Bool
	lastTickUnix atomic.Int64 // unix seconds
}

func NewState() *State {
	return NewStateWithClock(time.Now)
}

func NewStateWithClock(now func() time.Time) *State {
	return &State{now: now, startedAt: now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return s.now().Sub(s.startedAt) }

// Report is the /healthz body.
type Report struct {
	Ready        bool  `json:"ready"`
	WSConnected  bool  `json:"wsConnected"`
	UptimeSec    int64 `json:"uptimeSec"`
	LastTickUnix int64 `json:"lastTickUnix"`
	// seconds since the last price tick, -1 before the first one
	TickAgeSec int64 `json:"tickAgeSec"`
}

func (s *State) Report() Report {
	r := Report{
		Ready:       s.Ready(),
		WSConnected: s.WSConnected(),
		UptimeSec:   int64(s.Uptime().Seconds()),
		TickAgeSec:  -1,
	}
	if last := s.LastTick(); !last.IsZero() {
		r.LastTickUnix = last.Unix()
		r.TickAgeSec = int64(s.now().Sub(last).Seconds())
	}
	return r
}
