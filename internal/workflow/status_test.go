package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for s := range allStatuses {
		parsed, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "draft", "APPROVED", "PENDING", "DRAFT "} {
		_, err := ParseStatus(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusFundsTransferred: true,
		StatusRejected:         true,
		StatusCancelled:        true,
	}
	for s := range allStatuses {
		assert.Equal(t, terminal[s], s.IsTerminal(), "status %s", s)
	}
}

func TestEditable(t *testing.T) {
	editable := map[Status]bool{
		StatusDraft:    true,
		StatusReturned: true,
	}
	for s := range allStatuses {
		assert.Equal(t, editable[s], s.Editable(), "status %s", s)
	}
}

func TestNoTransitionLeavesTerminalStatus(t *testing.T) {
	for action, sources := range transitions {
		for from := range sources {
			assert.False(t, from.IsTerminal(),
				"action %s allows transition out of terminal status %s", action, from)
		}
	}
}
