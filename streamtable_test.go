package http2

import "testing"

func TestStreamTableInsertGetDel(t *testing.T) {
	st := NewStreamTable()

	s1 := NewStream(1, 65535, nil)
	s3 := NewStream(3, 65535, nil)
	st.Insert(s1)
	st.Insert(s3)

	if st.Len() != 2 {
		t.Fatalf("unexpected length: %d", st.Len())
	}
	if got := st.Get(1); got != s1 {
		t.Fatalf("unexpected stream for id 1: %v", got)
	}
	if got := st.Get(5); got != nil {
		t.Fatalf("expected nil for an unknown stream id, got %v", got)
	}

	if got := st.Del(1); got != s1 {
		t.Fatalf("Del returned unexpected stream: %v", got)
	}
	if st.Get(1) != nil {
		t.Fatal("stream 1 should be gone after Del")
	}
	if st.Len() != 1 {
		t.Fatalf("unexpected length after Del: %d", st.Len())
	}
	if got := st.Del(1); got != nil {
		t.Fatal("deleting an already-removed stream should return nil")
	}
}

func TestStreamTableCountOpen(t *testing.T) {
	st := NewStreamTable()

	idle := NewStream(1, 65535, nil)
	idle.SetState(StreamStateIdle)
	st.Insert(idle)

	open := NewStream(3, 65535, nil)
	open.SetState(StreamStateOpen)
	st.Insert(open)

	halfClosed := NewStream(5, 65535, nil)
	halfClosed.SetState(StreamStateHalfClosedRemote)
	st.Insert(halfClosed)

	closed := NewStream(7, 65535, nil)
	closed.SetState(StreamStateClosed)
	st.Insert(closed)

	if n := st.CountOpen(); n != 2 {
		t.Fatalf("unexpected open count: %d", n)
	}
}

func TestStreamTableEach(t *testing.T) {
	st := NewStreamTable()
	ids := map[uint32]bool{1: false, 3: false, 5: false}
	for id := range ids {
		st.Insert(NewStream(id, 65535, nil))
	}

	seen := map[uint32]bool{}
	st.Each(func(s *Stream) {
		seen[s.ID()] = true
	})

	for id := range ids {
		if !seen[id] {
			t.Fatalf("Each did not visit stream %d", id)
		}
	}
}
