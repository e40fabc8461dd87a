package iox

import (
	"errors"
	"testing"
)

type spyCloser struct{ calls int }

func (s *spyCloser) Close() error { s.calls++; return errors.New("already closed") }

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if s.calls != 1 {
		t.Errorf("calls = %d, want 1", s.calls)
	}
}

func TestCloseFunc_Deferred(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.calls != 0 {
		t.Fatalf("calls = %d before cleanup, want 0", s.calls)
	}
	fn()
	fn()
	if s.calls != 2 {
		t.Errorf("calls = %d, want 2", s.calls)
	}
}
