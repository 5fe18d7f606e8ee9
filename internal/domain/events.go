package domain

// Event is an observable fact emitted after a committed state transition.
// Emission is fire-and-forget: core correctness never depends on an event
// being observed, and consumers must tolerate at-least-once delivery.
type Event struct {
	Type string `json:"type"`
	At   int64  `json:"at"` // unix seconds
	Body any    `json:"body"`
}

const (
	EventListingCreated     = "ListingCreated"
	EventListingDeactivated = "ListingDeactivated"
	EventRentalStarted      = "RentalStarted"
	EventRentalCompleted    = "RentalCompleted"
	EventRentalDisputed     = "RentalDisputed"
	EventDisputeResolved    = "DisputeResolved"
	EventRentalRecovered    = "RentalRecovered"
	EventStreamCreated      = "StreamCreated"
	EventStreamWithdrawn    = "StreamWithdrawn"
	EventStreamCancelled    = "StreamCancelled"
	EventReputationChanged  = "ReputationChanged"
)

type StreamWithdrawnBody struct {
	StreamID string  `json:"stream_id"`
	To       Account `json:"to"`
	Amount   int64   `json:"amount"`
}

type StreamCancelledBody struct {
	StreamID        string `json:"stream_id"`
	RecipientPayout int64  `json:"recipient_payout"`
	SenderRefund    int64  `json:"sender_refund"`
}

type DisputeResolvedBody struct {
	RentalID    string `json:"rental_id"`
	FavorRenter bool   `json:"favor_renter"`
	Refund      int64  `json:"refund"`
}

type ReputationChangedBody struct {
	Account     Account `json:"account"`
	Score       int64   `json:"score"`
	Blacklisted bool    `json:"blacklisted"`
	Success     bool    `json:"success"`
}
