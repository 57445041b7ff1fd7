package ports

import (
	"context"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
)

// DataService is row-level access to the tickets table. Every call carries the
// caller's session; ownership is enforced by the service, not by the client.
type DataService interface {
	Select(ctx context.Context, sess domainauth.Session, q model.TicketQuery) ([]model.Ticket, error)
	Insert(ctx context.Context, sess domainauth.Session, row model.TicketRow) (model.Ticket, error)
	Update(ctx context.Context, sess domainauth.Session, id string, patch model.TicketPatch) error
	Delete(ctx context.Context, sess domainauth.Session, id string) error
}
