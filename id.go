package recur

import "github.com/xraph/recur/id"

// ID is the TypeID used for transfer handles and audit events.
type ID = id.ID

// DeriveID returns the deterministic "<account>_<step>" identifier.
var DeriveID = id.Derive
