package service

import (
	"testing"
	"time"
)

func TestReport(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewStateWithClock(func() time.Time { return now })

	r := s.Report()
	if r.Ready || r.WSConnected || r.LastTickUnix != 0 || r.TickAgeSec != -1 {
		t.Fatalf("unexpected initial report %+v", r)
	}

	s.SetReady(true)
	s.SetWSConnected(true)
	s.TouchTick(now.Add(-5 * time.Second))
	now = now.Add(time.Minute)

	r = s.Report()
	if !r.Ready || !r.WSConnected || r.UptimeSec != 60 || r.TickAgeSec != 65 {
		t.Fatalf("unexpected report %+v", r)
	}
}
