package db

import (
	"context"
	"errors"
	"time"
	"topup"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
	"github.com/volatiletech/null/v8"
)

func SupportTicketInsert(ctx context.Context, conn Conn, ticket *topup.SupportTicket) error {
	ticket.ID = uuid.Must(uuid.NewV4()).String()
	ticket.Status = topup.TicketStatusOpen
	ticket.CreatedAt = time.Now()
	q := `
		INSERT INTO support_tickets (id, user_id, subject, body, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := conn.Exec(ctx, q, ticket.ID, ticket.UserID, ticket.Subject, ticket.Body, ticket.Status, ticket.CreatedAt)
	if err != nil {
		return terror.Error(err, "Failed to create support ticket.")
	}
	return nil
}

func SupportTicketGet(ctx context.Context, conn Conn, ticketID string) (*topup.SupportTicket, error) {
	ticket := &topup.SupportTicket{}
	q := `SELECT * FROM support_tickets WHERE id = $1`
	err := pgxscan.Get(ctx, conn, ticket, q, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return ticket, nil
}

func SupportTicketListByUser(ctx context.Context, conn Conn, userID string) ([]*topup.SupportTicket, error) {
	tickets := []*topup.SupportTicket{}
	q := `SELECT * FROM support_tickets WHERE user_id = $1 ORDER BY created_at DESC`
	err := pgxscan.Select(ctx, conn, &tickets, q, userID)
	if err != nil {
		return nil, terror.Error(err)
	}
	return tickets, nil
}

func SupportTicketList(ctx context.Context, conn Conn, status topup.TicketStatus) ([]*topup.SupportTicket, error) {
	tickets := []*topup.SupportTicket{}
	q := `
		SELECT * FROM support_tickets
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
	`
	err := pgxscan.Select(ctx, conn, &tickets, q, string(status))
	if err != nil {
		return nil, terror.Error(err)
	}
	return tickets, nil
}

func SupportTicketReply(ctx context.Context, conn Conn, ticketID, reply string, close bool) error {
	status := topup.TicketStatusOpen
	if close {
		status = topup.TicketStatusClosed
	}
	q := `UPDATE support_tickets SET reply = $2, status = $3 WHERE id = $1`
	_, err := conn.Exec(ctx, q, ticketID, null.StringFrom(reply), status)
	if err != nil {
		return terror.Error(err, "Failed to reply to support ticket.")
	}
	return nil
}
