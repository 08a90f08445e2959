package testutil

import (
	"testing"

	"github.com/pzaremba/sprintdesk/internal/state"
)

// NewStateStore creates an in-memory client state store, closed when the
// test completes.
func NewStateStore(t *testing.T) *state.Store {
	t.Helper()
	st, err := state.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test state store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}
