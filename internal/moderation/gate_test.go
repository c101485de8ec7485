package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skillswap_back_end/internal/models"
)

func TestCanInteract(t *testing.T) {
	assert.True(t, CanInteract(&models.User{}))
	assert.False(t, CanInteract(&models.User{IsBanned: true}))
	assert.False(t, CanInteract(nil))
}

func TestCanBeTarget(t *testing.T) {
	assert.True(t, CanBeTarget(&models.User{IsPublic: true}))
	assert.False(t, CanBeTarget(&models.User{IsPublic: false}))
	assert.False(t, CanBeTarget(&models.User{IsPublic: true, IsBanned: true}))
	assert.False(t, CanBeTarget(nil))
}

func TestListingProfile(t *testing.T) {
	u := models.User{
		SkillsOffered: []models.Skill{
			{Name: "guitare", IsApproved: true},
			{Name: "spam", IsApproved: false},
			{Name: "espagnol", IsApproved: true},
		},
		SkillsWanted: []models.Skill{{Name: "cuisine"}},
	}

	listing := ListingProfile(u)
	assert.Len(t, listing.SkillsOffered, 2)
	for _, s := range listing.SkillsOffered {
		assert.True(t, s.IsApproved)
	}
	// les compétences recherchées ne passent pas par la modération
	assert.Len(t, listing.SkillsWanted, 1)

	// l'original n'est pas modifié
	assert.Len(t, u.SkillsOffered, 3)
}
