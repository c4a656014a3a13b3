package support

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicket(t *testing.T) {
	t.Run("opens with default priority", func(t *testing.T) {
		tk, err := NewTicket("tkt_1", "u1", " Installation issue with GST TDL ", "")

		require.NoError(t, err)
		assert.Equal(t, TicketStatusOpen, tk.Status)
		assert.Equal(t, TicketPriorityMedium, tk.Priority)
		assert.Equal(t, "Installation issue with GST TDL", tk.Subject)
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		_, err := NewTicket("tkt_1", "u1", "x", TicketPriority("urgent"))
		assert.Error(t, err)
	})

	t.Run("rejects empty subject", func(t *testing.T) {
		_, err := NewTicket("tkt_1", "u1", " ", TicketPriorityLow)
		assert.Error(t, err)
	})
}

func TestTicket_SetStatus(t *testing.T) {
	tk, err := NewTicket("tkt_1", "u1", "x", TicketPriorityHigh)
	require.NoError(t, err)

	require.NoError(t, tk.SetStatus(TicketStatusInProgress))
	assert.Equal(t, TicketStatusInProgress, tk.Status)
	assert.Error(t, tk.SetStatus("done"))
	assert.Equal(t, TicketStatusInProgress, tk.Status)
}

func TestNewFeedback(t *testing.T) {
	for _, rating := range []int{0, 6, -1} {
		_, err := NewFeedback("fb", "A", "a@x.com", rating, "")
		assert.Error(t, err, "rating %d", rating)
	}

	fb, err := NewFeedback("fb", "Amit", " Amit@X.com ", 5, " Great module ")
	require.NoError(t, err)
	assert.Equal(t, "amit@x.com", fb.UserEmail)
	assert.Equal(t, "Great module", fb.Comment)
}
