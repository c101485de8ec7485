package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProfileComplete(t *testing.T) {
	complete := User{
		Name:          "Alice",
		Email:         "alice@test.local",
		Introduction:  "Guitariste depuis dix ans",
		SkillsOffered: []Skill{{Name: "guitare", Level: LevelAdvanced}},
		SkillsWanted:  []Skill{{Name: "espagnol", Level: LevelBeginner}},
	}
	assert.True(t, complete.IsProfileComplete())

	mutations := []func(u *User){
		func(u *User) { u.Name = "" },
		func(u *User) { u.Email = "" },
		func(u *User) { u.Introduction = "" },
		func(u *User) { u.SkillsOffered = nil },
		func(u *User) { u.SkillsWanted = nil },
	}
	for i, mutate := range mutations {
		u := complete
		mutate(&u)
		assert.False(t, u.IsProfileComplete(), "mutation %d", i)
	}
}
