package cache

import "github.com/pithecene-io/physlink/types"

// States holds the last actual state reported per body.
type States struct {
	byBody map[int]types.ActualState
}

// Put stores a copy of st under its body id.
func (s *States) Put(st types.ActualState) {
	if s.byBody == nil {
		s.byBody = make(map[int]types.ActualState)
	}
	s.byBody[st.BodyUniqueID] = copyState(st)
}

// Get returns a copy of the state of body id.
func (s *States) Get(id int) (types.ActualState, bool) {
	st, ok := s.byBody[id]
	if !ok {
		return types.ActualState{}, false
	}
	return copyState(st), true
}

// Reset drops every state.
func (s *States) Reset() {
	s.byBody = nil
}

func copyState(st types.ActualState) types.ActualState {
	st.Q = append([]float64(nil), st.Q...)
	st.QDot = append([]float64(nil), st.QDot...)
	return st
}
