// Package transfer describes the value-transfer requests recur hands to the
// settlement layer. A Handle records that a transfer was requested; it does
// not confirm settlement.
package transfer

import (
	"time"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/types"
)

// Status reports how far a requested transfer has progressed.
type Status string

const (
	StatusRequested Status = "requested"
	StatusForwarded Status = "forwarded"
	StatusSettled   Status = "settled"
	StatusFailed    Status = "failed"
)

// Request asks the settlement layer to move Amount base units to Recipient.
type Request struct {
	ID         id.ID        `json:"id"`
	ScheduleID string       `json:"schedule_id"`
	Recipient  string       `json:"recipient"`
	Amount     types.Amount `json:"amount"`
}

// NewRequest builds a request with a fresh transfer ID.
func NewRequest(scheduleID, recipient string, amount types.Amount) Request {
	return Request{
		ID:         id.NewTransferID(),
		ScheduleID: scheduleID,
		Recipient:  recipient,
		Amount:     amount,
	}
}

// Handle is the receipt for a requested transfer.
type Handle struct {
	ID          id.ID        `json:"id"`
	ScheduleID  string       `json:"schedule_id"`
	Recipient   string       `json:"recipient"`
	Amount      types.Amount `json:"amount"`
	Remaining   types.Amount `json:"remaining"`
	Reference   string       `json:"reference,omitempty"`
	Status      Status       `json:"status"`
	RequestedAt time.Time    `json:"requested_at"`
}
