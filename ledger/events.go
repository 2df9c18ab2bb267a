package ledger

import "github.com/shopspring/decimal"

// Event is published once per successful state mutation on an account.
// AccountUpdated is currently the engine's only event kind — the type is
// kept as its own struct, mirroring the source's AllEvents enum, so a
// second kind can be added without touching every subscriber's switch.
type Event struct {
	AccountID AccountID
	TxID      TxID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// Result is the outcome of a successful domain operation: nothing but the
// events it raised, since the operations here return no data of their own.
type Result struct {
	Events []Event
}
