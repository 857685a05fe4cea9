package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTeamSnapshotCopiesRoster(t *testing.T) {
	userID := 7
	team := Team{
		ID:   uuid.New(),
		Name: "Los Primos",
		Players: []Participant{
			{Kind: ParticipantRegistered, UserID: &userID, Name: "ana"},
			{Kind: ParticipantGuest, Name: "Tío Carlos"},
		},
	}

	snap := team.Snapshot()
	assert.Equal(t, team.ID, snap.TeamID)
	assert.Equal(t, team.Name, snap.Name)
	assert.Equal(t, team.Players, snap.Players)

	// Mutating the team afterwards must not rewrite the snapshot.
	team.Players[0].Name = "renamed"
	assert.Equal(t, "ana", snap.Players[0].Name)
}

func TestTeamHasRegisteredUser(t *testing.T) {
	userID := 42
	team := Team{
		Players: []Participant{
			{Kind: ParticipantRegistered, UserID: &userID, Name: "bruno"},
			{Kind: ParticipantGuest, Name: "guest"},
		},
	}

	assert.True(t, team.HasRegisteredUser(42))
	assert.False(t, team.HasRegisteredUser(43))

	// Guests never match, whatever id is asked for.
	guestOnly := Team{Players: []Participant{{Kind: ParticipantGuest, Name: "guest"}}}
	assert.False(t, guestOnly.HasRegisteredUser(42))
}
