package ticket

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/zendesk"
)

type mockHelpdesk struct {
	mock.Mock
}

func (m *mockHelpdesk) SearchTickets(ctx context.Context, query string) ([]zendesk.Ticket, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zendesk.Ticket), args.Error(1)
}

func (m *mockHelpdesk) ShowManyByExternalID(ctx context.Context, externalIDs []string) ([]zendesk.Ticket, error) {
	args := m.Called(ctx, externalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zendesk.Ticket), args.Error(1)
}

func (m *mockHelpdesk) CreateTicket(ctx context.Context, req zendesk.TicketRequest, idempotencyKey string) (*zendesk.Ticket, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zendesk.Ticket), args.Error(1)
}

func (m *mockHelpdesk) UpdateTicket(ctx context.Context, id int64, req zendesk.TicketRequest) (*zendesk.Ticket, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zendesk.Ticket), args.Error(1)
}

func (m *mockHelpdesk) ListAudits(ctx context.Context, ticketID int64) ([]zendesk.Audit, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zendesk.Audit), args.Error(1)
}

func (m *mockHelpdesk) UpdateComment(ctx context.Context, ticketID, commentID int64, body string) error {
	args := m.Called(ctx, ticketID, commentID, body)
	return args.Error(0)
}
