package mocks

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
)

// Opens a mock connection that verifies on cleanup that all expectations were met.
func NewConn(t *testing.T) pgxmock.PgxConnIface {
	mock, err := pgxmock.NewConn()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = mock.Close(context.Background())
	})
	return mock
}
