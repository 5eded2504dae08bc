package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:   {StatusCheckedIn, StatusDenied},
		StatusCheckedIn: {StatusCheckedOut},
	}
	all := []Status{StatusPending, StatusCheckedIn, StatusCheckedOut, StatusDenied}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, legal := range allowed[from] {
				if to == legal {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestPendingCannotSkipToCheckedOut(t *testing.T) {
	assert.False(t, StatusPending.CanTransitionTo(StatusCheckedOut))
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	for _, terminal := range []Status{StatusCheckedOut, StatusDenied} {
		for _, to := range []Status{StatusPending, StatusCheckedIn, StatusCheckedOut, StatusDenied} {
			assert.False(t, terminal.CanTransitionTo(to), "%s -> %s", terminal, to)
		}
	}
}

func TestKnown(t *testing.T) {
	assert.True(t, StatusPending.Known())
	assert.True(t, StatusDenied.Known())
	assert.False(t, Status("archived").Known())
	assert.False(t, Status("").Known())
}
