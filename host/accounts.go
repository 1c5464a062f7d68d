package host

import "regexp"

const (
	minAccountLen = 2
	maxAccountLen = 64
)

// Named account parts are lowercase alphanumeric runs joined by '-' or '_',
// and the parts are joined by '.'.
var namedAccountPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

// NamedAccounts validates human-readable named accounts such as
// "alice.near" or "pay-roll_01.corp". Implicit 64-hex accounts match the
// same rules.
type NamedAccounts struct{}

// IsValidAccount implements AccountValidator.
func (NamedAccounts) IsValidAccount(account string) bool {
	if len(account) < minAccountLen || len(account) > maxAccountLen {
		return false
	}
	return namedAccountPattern.MatchString(account)
}
