package ais

import (
	"errors"
	"testing"
)

func mustFragment(t *testing.T, line string) *Fragment {
	t.Helper()
	_, f, err := ParseLine(line)
	if err != nil || f == nil {
		t.Fatalf("ParseLine(%q) = %v, %v, want fragment", line, f, err)
	}
	return f
}

func TestFragment_Follows(t *testing.T) {
	p1 := mustFragment(t, lineType8Part1)
	p2 := mustFragment(t, lineType8Part2)
	p3 := mustFragment(t, lineType8Part3)
	other := mustFragment(t, lineType5Part2)

	if !p2.Follows(p1) || !p3.Follows(p2) {
		t.Error("consecutive fragments do not follow")
	}
	if p3.Follows(p1) {
		t.Error("fragment 3 follows fragment 1")
	}
	if p1.Follows(p1) {
		t.Error("fragment follows itself")
	}
	if other.Follows(p1) {
		t.Error("fragment of another group follows")
	}
	if p1.Follows(nil) {
		t.Error("fragment follows nil")
	}
}

func TestFragmentPool_Complete(t *testing.T) {
	pool := NewFragmentPool()
	if pool.State() != PoolEmpty {
		t.Errorf("State() = %v, want empty", pool.State())
	}

	for i, line := range []string{lineType8Part1, lineType8Part2} {
		if err := pool.Add(mustFragment(t, line)); err != nil {
			t.Fatalf("Add(%d) error: %v", i, err)
		}
		if pool.HasFullSentence() {
			t.Fatalf("full sentence after %d fragments", i+1)
		}
		if pool.State() != PoolAccumulating {
			t.Errorf("State() = %v, want accumulating", pool.State())
		}
	}
	if pool.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", pool.Pending())
	}

	if err := pool.Add(mustFragment(t, lineType8Part3)); err != nil {
		t.Fatalf("Add(last) error: %v", err)
	}
	if pool.State() != PoolReady || pool.Pending() != 0 {
		t.Errorf("State() = %v, Pending() = %d, want ready and 0", pool.State(), pool.Pending())
	}

	s, err := pool.PopFullSentence()
	if err != nil {
		t.Fatalf("PopFullSentence error: %v", err)
	}
	if s.Payload.Len() != 258+258+52 {
		t.Errorf("payload bits = %d, want 568", s.Payload.Len())
	}
	if s.TypeID() != 8 {
		t.Errorf("TypeID() = %d, want 8", s.TypeID())
	}
	wantRaw := []string{lineType8Part1, lineType8Part2, lineType8Part3}
	if len(s.Raw) != len(wantRaw) {
		t.Fatalf("Raw = %q, want %q", s.Raw, wantRaw)
	}
	for i := range wantRaw {
		if s.Raw[i] != wantRaw[i] {
			t.Errorf("Raw[%d] = %q, want %q", i, s.Raw[i], wantRaw[i])
		}
	}

	if _, err := pool.PopFullSentence(); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("second PopFullSentence error = %v, want ErrEmptyPool", err)
	}
	if pool.State() != PoolEmpty {
		t.Errorf("State() = %v, want empty", pool.State())
	}
	if got := pool.Stats().Completed; got != 1 {
		t.Errorf("Completed = %d, want 1", got)
	}
}

func TestFragmentPool_ResetOnBrokenSequence(t *testing.T) {
	pool := NewFragmentPool()
	for _, line := range []string{lineType8Part1, lineType8Part2, lineType5Part1, lineType5Part2} {
		if err := pool.Add(mustFragment(t, line)); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}
	s, err := pool.PopFullSentence()
	if err != nil {
		t.Fatalf("PopFullSentence error: %v", err)
	}
	if s.TypeID() != 5 || len(s.Raw) != 2 {
		t.Errorf("sentence type %d with %d lines, want type 5 with 2", s.TypeID(), len(s.Raw))
	}
	if got := pool.Stats().Resets; got != 1 {
		t.Errorf("Resets = %d, want 1", got)
	}
}

func TestFragmentPool_RestartSameKey(t *testing.T) {
	pool := NewFragmentPool()
	for _, line := range []string{lineType8Part1, lineType8Part2, lineType8Part1} {
		if err := pool.Add(mustFragment(t, line)); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}
	if pool.Pending() != 1 || pool.Stats().Resets != 1 {
		t.Errorf("Pending() = %d, Resets = %d, want 1, 1", pool.Pending(), pool.Stats().Resets)
	}
	if pool.HasFullSentence() {
		t.Fatal("full sentence after restart")
	}

	for _, line := range []string{lineType8Part2, lineType8Part3} {
		if err := pool.Add(mustFragment(t, line)); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}
	s, err := pool.PopFullSentence()
	if err != nil {
		t.Fatalf("PopFullSentence error: %v", err)
	}
	if s.Payload.Len() != 568 || len(s.Raw) != 3 {
		t.Errorf("payload bits = %d with %d lines, want 568 with 3", s.Payload.Len(), len(s.Raw))
	}
	if st := pool.Stats(); st.Completed != 1 || st.Resets != 1 || st.Orphans != 0 {
		t.Errorf("Stats() = %+v, want 1 completed, 1 reset, 0 orphans", st)
	}
}

func TestFragmentPool_Orphan(t *testing.T) {
	pool := NewFragmentPool()

	err := pool.Add(mustFragment(t, lineType8Part2))
	if !errors.Is(err, ErrOrphanFragment) {
		t.Fatalf("Add error = %v, want ErrOrphanFragment", err)
	}
	if pool.State() != PoolEmpty || pool.HasFullSentence() {
		t.Errorf("orphan changed state to %v", pool.State())
	}

	// A mid-group fragment after a reset is dropped, not assembled.
	if err := pool.Add(mustFragment(t, lineType8Part1)); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	err = pool.Add(mustFragment(t, lineType5Part2))
	if !errors.Is(err, ErrOrphanFragment) {
		t.Fatalf("Add error = %v, want ErrOrphanFragment", err)
	}
	if pool.HasFullSentence() {
		t.Error("sentence assembled from an orphan last fragment")
	}

	st := pool.Stats()
	if st.Orphans != 2 || st.Resets != 1 || st.Completed != 0 {
		t.Errorf("Stats() = %+v, want 2 orphans, 1 reset, 0 completed", st)
	}
}

func TestFragmentPool_UnclaimedSentenceReplaced(t *testing.T) {
	pool := NewFragmentPool()
	for _, line := range []string{lineType5Part1, lineType5Part2, lineType8Part1, lineType8Part2, lineType8Part3} {
		if err := pool.Add(mustFragment(t, line)); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}
	s, _ := pool.PopFullSentence()
	if s.TypeID() != 8 {
		t.Errorf("TypeID() = %d, want 8", s.TypeID())
	}
	if got := pool.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestFragmentPool_ReadyWhileAccumulating(t *testing.T) {
	pool := NewFragmentPool()
	for _, line := range []string{lineType5Part1, lineType5Part2, lineType8Part1} {
		if err := pool.Add(mustFragment(t, line)); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}
	if pool.State() != PoolReady || pool.Pending() != 1 {
		t.Errorf("State() = %v, Pending() = %d, want ready and 1", pool.State(), pool.Pending())
	}
	s, _ := pool.PopFullSentence()
	if s.TypeID() != 5 {
		t.Errorf("TypeID() = %d, want 5", s.TypeID())
	}
	if pool.State() != PoolAccumulating {
		t.Errorf("State() = %v, want accumulating", pool.State())
	}
}

func TestPoolState_String(t *testing.T) {
	tests := []struct {
		s    PoolState
		want string
	}{
		{PoolEmpty, "empty"},
		{PoolAccumulating, "accumulating"},
		{PoolReady, "ready"},
		{PoolState(9), "PoolState(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
