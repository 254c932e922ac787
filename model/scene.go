package model

import "encoding/json"

// Role is a participant's privilege level in the room.
type Role string

const (
	RolePlayer Role = "PLAYER"
	RoleGM     Role = "GM"
)

// Participant is a connected client's identity.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsGM reports whether the participant holds the privileged role.
func (p Participant) IsGM() bool {
	return p.Role == RoleGM
}

// TokenKind classifies what a token represents on the map.
type TokenKind string

const (
	TokenPlayer   TokenKind = "player"
	TokenNPC      TokenKind = "npc"
	TokenParty    TokenKind = "party"
	TokenLore     TokenKind = "lore"
	TokenMerchant TokenKind = "merchant"
)

// Point is a scene position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Token is an on-map game piece. Position is the token centre.
type Token struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Kind      TokenKind                  `json:"kind"`
	Position  Point                      `json:"position"`
	ClaimedBy string                     `json:"claimedBy,omitempty"`
	Metadata  map[string]json.RawMessage `json:"metadata,omitempty"`
}

// Claimed reports whether any participant has claimed the token.
func (t Token) Claimed() bool {
	return t.ClaimedBy != ""
}

// Classification is a partner's relationship to the requesting participant.
type Classification string

const (
	ClassSelf        Classification = "self"
	ClassParty       Classification = "party"
	ClassOtherPlayer Classification = "other-player"
	ClassNPC         Classification = "npc"
	ClassMerchant    Classification = "merchant"
)

// PartnerCandidate is a read-time projection of a token that could be traded with.
type PartnerCandidate struct {
	Token          Token          `json:"token"`
	Character      Character      `json:"character"`
	Classification Classification `json:"classification"`
	Distance       float64        `json:"distance"`
}
