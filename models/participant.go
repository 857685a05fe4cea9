package models

import "github.com/google/uuid"

// ParticipantKind tags the two variants of a participant. The tag is fixed
// when the participant is resolved and never changes afterwards.
type ParticipantKind string

const (
	ParticipantRegistered ParticipantKind = "registered"
	ParticipantGuest      ParticipantKind = "guest"
)

// Participant is a tagged union: either a registered user (UserID set) or an
// ad-hoc guest (GuestID set, minted at resolution time). Name is the display
// name at the moment of creation and is carried verbatim into match snapshots.
type Participant struct {
	Kind    ParticipantKind `json:"kind"`
	UserID  *int            `json:"user_id,omitempty"`
	GuestID *uuid.UUID      `json:"guest_id,omitempty"`
	Name    string          `json:"name"`
}

func (p Participant) IsGuest() bool {
	return p.Kind == ParticipantGuest
}

// PlayerRef is the raw player reference accepted at the API boundary, before
// the identity resolver turns it into a Participant.
type PlayerRef struct {
	PlayerID *int   `json:"player_id,omitempty"`
	Name     string `json:"name"`
	IsGuest  bool   `json:"is_guest,omitempty"`
}
