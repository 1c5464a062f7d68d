package recur

import "github.com/xraph/recur/types"

// Re-export common types so callers don't have to import the types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	NewAmount   = types.NewAmount
	ParseAmount = types.ParseAmount
	Whole       = types.Whole
	ZeroAmount  = types.Zero
	UnitScale   = types.UnitScale
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
