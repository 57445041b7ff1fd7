package ports_test

import (
	"testing"

	"github.com/target/ticketflow/internal/mocks"
	authmocks "github.com/target/ticketflow/internal/mocks/auth"
	"github.com/target/ticketflow/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.AuthProvider = (*mocks.MockAuthProvider)(nil)
	var _ ports.DataService = (*mocks.MockDataService)(nil)
	var _ ports.AuthProvider = (*authmocks.StubAuthProvider)(nil)
	var _ ports.SessionPersister = (*authmocks.MemoryPersister)(nil)
}
