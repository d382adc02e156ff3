package entity

import "time"

// StatusActive is the status of a freshly issued ticket.
const StatusActive = "active"

type Ticket struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	EventID    int64     `db:"event_id" json:"event_id"`
	TicketCode string    `db:"ticket_code" json:"ticket_code"`
	Status     string    `db:"status" json:"status"`
	Price      float64   `db:"price" json:"price"`
	QRCodeURL  string    `db:"qr_code_url" json:"qr_code_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// View is a ticket joined with its event, as returned to the owner.
type View struct {
	TicketID   int64      `db:"ticket_id" json:"ticket_id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	TicketCode string     `db:"ticket_code" json:"ticket_code"`
	Status     string     `db:"status" json:"status"`
	Price      float64    `db:"price" json:"price"`
	QRCodeURL  string     `db:"qr_code_url" json:"qr_code_url"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	EventID    int64      `db:"event_id" json:"event_id"`
	EventName  string     `db:"event_name" json:"event_name"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    *time.Time `db:"end_date" json:"end_date"`
	Location   string     `db:"location" json:"location"`
}
