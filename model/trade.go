package model

import "time"

// TradeStatus is the negotiation phase of the shared trade record.
type TradeStatus string

const (
	TradePending TradeStatus = "pending-acceptance"
	TradeActive  TradeStatus = "active"
)

// TradeParticipant describes one side of a trade.
type TradeParticipant struct {
	TokenID  string `json:"tokenId"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// TradeOffer is what one side puts on the table. Filled by the execution surface.
type TradeOffer struct {
	Items    []Item   `json:"items"`
	Currency Currency `json:"currency"`
}

// ActiveTrade is the single shared record describing an in-flight trade.
// At most one exists per room.
type ActiveTrade struct {
	ID                 string           `json:"id"`
	Status             TradeStatus      `json:"status"`
	Initiator          TradeParticipant `json:"initiator"`
	Target             TradeParticipant `json:"target"`
	InitiatorOffer     TradeOffer       `json:"initiatorOffer"`
	TargetOffer        TradeOffer       `json:"targetOffer"`
	InitiatorConfirmed bool             `json:"initiatorConfirmed"`
	TargetConfirmed    bool             `json:"targetConfirmed"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// Involves reports whether the participant is on either side.
func (t ActiveTrade) Involves(playerID string) bool {
	return playerID != "" && (t.Initiator.PlayerID == playerID || t.Target.PlayerID == playerID)
}

// AddressedTo reports whether the participant is the one asked to accept.
func (t ActiveTrade) AddressedTo(playerID string) bool {
	return playerID != "" && t.Target.PlayerID == playerID
}
