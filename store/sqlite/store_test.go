package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedError struct {
	code int
}

func (e codedError) Error() string { return fmt.Sprintf("sqlite error %d", e.code) }
func (e codedError) Code() int     { return e.code }

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"primary key", codedError{code: constraintPrimaryKey}, true},
		{"unique index", fmt.Errorf("insert: %w", codedError{code: constraintUnique}), true},
		{"not null", codedError{code: 1299}, false},
		{"driver text", errors.New("constraint failed: UNIQUE constraint failed: recur_tenants.account_id (1555)"), true},
		{"no rows", sql.ErrNoRows, false},
		{"busy", errors.New("database is locked"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
