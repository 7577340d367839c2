package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), ErrNotFound},
		{"duplicate", &driver.MySQLError{Number: 1062, Message: "Duplicate entry"}, ErrDuplicate},
		{"referenced", &driver.MySQLError{Number: 1451}, ErrConflict},
		{"missing parent", &driver.MySQLError{Number: 1452}, ErrMissingReference},
		{"other mysql", &driver.MySQLError{Number: 1205}, nil},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Equal(t, tt.in, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}
