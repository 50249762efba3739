// Package ticket is the sink for support tickets created through actions.
// Ticket numbers start at 1000 and strictly increase; identifiers render as
// "INC<number>".
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FirstNumber is the number given to the first ticket.
const FirstNumber = 1000

const (
	StatusOpen      = "open"
	DefaultAssignee = "IT Support Team"
)

// ErrNotFound is returned for unknown ticket ids.
var ErrNotFound = errors.New("ticket not found")

// Ticket is a created support ticket.
type Ticket struct {
	ID                  string    `json:"ticket_id"`
	Number              int       `json:"-"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Category            string    `json:"category"`
	Priority            string    `json:"priority"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	EstimatedResolution string    `json:"estimated_resolution"`
	AssignedTo          string    `json:"assigned_to"`
}

// NewTicket carries the caller-supplied fields of a ticket.
type NewTicket struct {
	Title       string
	Description string
	Category    string
	Priority    string
}

// Store persists tickets.
type Store interface {
	Create(ctx context.Context, t NewTicket) (*Ticket, error)
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Ticket, error)
	// List returns tickets in creation order.
	List(ctx context.Context) ([]*Ticket, error)
}

// FormatID renders a ticket number as an identifier.
func FormatID(n int) string {
	return fmt.Sprintf("INC%d", n)
}

// ParseID extracts the number from an identifier such as "INC1000". Matching
// is case-insensitive.
func ParseID(id string) (int, error) {
	id = strings.TrimSpace(id)
	if len(id) < 4 || !strings.EqualFold(id[:3], "INC") {
		return 0, fmt.Errorf("%w: malformed id %q", ErrNotFound, id)
	}
	n, err := strconv.Atoi(id[3:])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: malformed id %q", ErrNotFound, id)
	}
	return n, nil
}

// EstimatedResolution maps a priority to its resolution window.
func EstimatedResolution(priority string) string {
	switch strings.ToLower(priority) {
	case "low":
		return "3-5 business days"
	case "medium":
		return "1-2 business days"
	case "high":
		return "4-8 hours"
	case "critical":
		return "1-2 hours"
	default:
		return "2-3 business days"
	}
}

// Materialize fills the derived fields of a ticket with the given number.
func Materialize(n int, nt NewTicket, now time.Time) *Ticket {
	priority := nt.Priority
	if priority == "" {
		priority = "medium"
	}
	return &Ticket{
		ID:                  FormatID(n),
		Number:              n,
		Title:               nt.Title,
		Description:         nt.Description,
		Category:            nt.Category,
		Priority:            priority,
		Status:              StatusOpen,
		CreatedAt:           now.UTC().Truncate(time.Second),
		EstimatedResolution: EstimatedResolution(priority),
		AssignedTo:          DefaultAssignee,
	}
}
