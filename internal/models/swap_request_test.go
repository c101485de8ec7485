package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]SwapStatus]bool{
		{SwapPending, SwapAccepted}:   true,
		{SwapPending, SwapRejected}:   true,
		{SwapPending, SwapCancelled}:  true,
		{SwapAccepted, SwapCompleted}: true,
	}

	statuses := []SwapStatus{SwapPending, SwapAccepted, SwapRejected, SwapCancelled, SwapCompleted}
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]SwapStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s → %s", from, to)
		}
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, SwapPending.Terminal())
	assert.False(t, SwapAccepted.Terminal())
	assert.True(t, SwapRejected.Terminal())
	assert.True(t, SwapCancelled.Terminal())
	assert.True(t, SwapCompleted.Terminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, SwapPending.Valid())
	assert.False(t, SwapStatus("paused").Valid())
	assert.False(t, SwapStatus("").Valid())
}

func TestParticipantHelpers(t *testing.T) {
	s := &SwapRequest{RequesterID: "alice", RecipientID: "bob"}

	assert.True(t, s.IsParticipant("alice"))
	assert.True(t, s.IsParticipant("bob"))
	assert.False(t, s.IsParticipant("carol"))

	assert.Equal(t, "bob", s.OtherParticipant("alice"))
	assert.Equal(t, "alice", s.OtherParticipant("bob"))
	assert.Equal(t, "", s.OtherParticipant("carol"))
}

func TestFeedbackFrom(t *testing.T) {
	s := &SwapRequest{
		RequesterID:       "alice",
		RecipientID:       "bob",
		RequesterFeedback: &Feedback{Rating: 5, GivenBy: "alice"},
	}

	assert.NotNil(t, s.FeedbackFrom("alice"))
	assert.Nil(t, s.FeedbackFrom("bob"))

	s.RecipientFeedback = &Feedback{Rating: 4, GivenBy: "bob"}
	assert.NotNil(t, s.FeedbackFrom("bob"))
}
