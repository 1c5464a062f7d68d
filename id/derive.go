package id

import (
	"fmt"
	"strconv"
	"strings"
)

// Derive returns the deterministic identifier for an entity created by
// account at the given host step: "<account>_<step>".
//
// Two calls from the same account within the same step produce the same
// identifier. Stores refuse to overwrite, so such a collision surfaces as an
// error rather than silently replacing a record.
func Derive(account string, step uint64) string {
	return account + "_" + strconv.FormatUint(step, 10)
}

// ParseDerived splits a derived identifier back into its account and step.
// The account may itself contain underscores; the step follows the last one.
func ParseDerived(s string) (account string, step uint64, err error) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("id: parse derived %q: missing account or step", s)
	}
	step, err = strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("id: parse derived %q: %w", s, err)
	}
	return s[:i], step, nil
}
