package model

// HoldStatus is the lifecycle state of a SeatHold.
type HoldStatus string

const (
	HoldPending   HoldStatus = "PENDING"
	HoldConfirmed HoldStatus = "CONFIRMED"
	HoldCancelled HoldStatus = "CANCELLED"
)

// CONFIRMED -> CONFIRMED is allowed: a redelivered payment success
// re-confirms the hold and issues a fresh booking code.
var validNext = map[HoldStatus]map[HoldStatus]bool{
	HoldPending:   {HoldConfirmed: true, HoldCancelled: true},
	HoldConfirmed: {HoldConfirmed: true},
	HoldCancelled: {},
}

// CanTransition reports whether a hold in state from may move to state to.
func CanTransition(from, to HoldStatus) bool {
	return validNext[from][to]
}
