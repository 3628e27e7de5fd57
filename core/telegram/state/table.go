package state

// Table maps each dialogue state owned by an engine to its step handler.
type Table[H any] map[State]H

// Lookup returns the handler for st.
func (t Table[H]) Lookup(st State) (H, bool) {
	h, ok := t[st]
	return h, ok
}

// Owns reports whether st belongs to this table.
func (t Table[H]) Owns(st State) bool {
	_, ok := t[st]
	return ok
}

// Missing returns the states that have no handler.
func (t Table[H]) Missing(states ...State) []State {
	var out []State
	for _, st := range states {
		if _, ok := t[st]; !ok {
			out = append(out, st)
		}
	}
	return out
}
