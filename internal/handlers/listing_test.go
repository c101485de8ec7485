package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skillswap_back_end/internal/models"
)

func TestParticipantIDs(t *testing.T) {
	swaps := []models.SwapRequest{
		{RequesterID: "alice", RecipientID: "bob"},
		{RequesterID: "alice", RecipientID: "carol"},
		{RequesterID: "bob", RecipientID: "alice"},
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, participantIDs(swaps))
	assert.Empty(t, participantIDs(nil))
}

func TestReviewerIDs(t *testing.T) {
	reviews := []models.Review{
		{ReviewerID: "alice"},
		{ReviewerID: "bob"},
		{ReviewerID: "alice"},
	}
	assert.Equal(t, []string{"alice", "bob"}, reviewerIDs(reviews))
	assert.Empty(t, reviewerIDs(nil))
}
