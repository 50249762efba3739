// Package helpdesk registers the IT support actions offered to the model:
// ticket creation and lookup, system status checks, the employee directory and
// the administrative maintenance scheduler.
package helpdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/hupe1980/ragdesk/action"
	"github.com/hupe1980/ragdesk/ticket"
)

// Action names.
const (
	CreateSupportTicket     = "create_support_ticket"
	CheckTicketStatus       = "check_ticket_status"
	CheckSystemStatus       = "check_system_status"
	SearchEmployeeDirectory = "search_employee_directory"
	ScheduleMaintenance     = "schedule_maintenance"
)

// Deps are the collaborators the actions need.
type Deps struct {
	Tickets   ticket.Store
	Systems   map[string]SystemStatus
	Directory []Employee
}

// DefaultEnabled lists the actions enabled when configuration is silent.
// schedule_maintenance is an administrative action and stays off.
func DefaultEnabled() map[string]bool {
	return map[string]bool{
		CreateSupportTicket:     true,
		CheckTicketStatus:       true,
		CheckSystemStatus:       true,
		SearchEmployeeDirectory: true,
		ScheduleMaintenance:     false,
	}
}

// Register adds every help-desk action to r and then applies enabled on top
// of DefaultEnabled.
func Register(r *action.Registry, deps Deps, enabled map[string]bool) error {
	if deps.Tickets == nil {
		return errors.New("helpdesk: ticket store is required")
	}
	if deps.Systems == nil {
		deps.Systems = DefaultSystems()
	}
	if deps.Directory == nil {
		deps.Directory = DefaultDirectory()
	}

	h := &handlers{deps: deps}
	for _, a := range []struct {
		def  action.Definition
		exec action.Executor
	}{
		{createTicketDefinition(), h.createTicket},
		{checkTicketDefinition(), h.checkTicket},
		{systemStatusDefinition(), h.systemStatus},
		{directoryDefinition(), h.searchDirectory},
		{maintenanceDefinition(), h.scheduleMaintenance},
	} {
		if err := r.Register(a.def, a.exec); err != nil {
			return err
		}
	}

	flags := DefaultEnabled()
	for name, on := range enabled {
		flags[name] = on
	}
	return r.Restrict(flags)
}

func createTicketDefinition() action.Definition {
	return action.Definition{
		Name:        CreateSupportTicket,
		Description: "Create a new IT support ticket when the user's issue cannot be resolved through the knowledge base or when they explicitly request to create a ticket",
		Parameters: []action.Field{
			{Name: "title", Type: action.TypeString, Required: true, MaxLength: 100, Description: "Brief title summarizing the issue (max 100 characters)"},
			{Name: "description", Type: action.TypeString, Required: true, Description: "Detailed description of the problem including what the user has already tried"},
			{Name: "category", Type: action.TypeString, Required: true, Description: "Category of the IT issue",
				Enum: []string{"password", "hardware", "software", "network", "access", "other"}},
			{Name: "priority", Type: action.TypeString, Default: "medium", Description: "Priority level: critical (system down), high (affecting work), medium (inconvenient), low (minor)",
				Enum: []string{"low", "medium", "high", "critical"}},
		},
	}
}

func checkTicketDefinition() action.Definition {
	return action.Definition{
		Name:        CheckTicketStatus,
		Description: "Check the current status of an existing IT support ticket using the ticket ID",
		Parameters: []action.Field{
			{Name: "ticket_id", Type: action.TypeString, Required: true, Description: "The ticket ID (format: INC followed by numbers, e.g., INC1000)"},
		},
	}
}

func systemStatusDefinition() action.Definition {
	return action.Definition{
		Name:        CheckSystemStatus,
		Description: "Check if a company system or service is currently operational",
		Parameters: []action.Field{
			{Name: "system_name", Type: action.TypeString, Required: true, Description: "Name of the system to check status",
				Enum: []string{"email", "vpn", "file_server", "internet", "office365", "printer"}},
		},
	}
}

func directoryDefinition() action.Definition {
	return action.Definition{
		Name:        SearchEmployeeDirectory,
		Description: "Search for employee contact information in the company directory",
		Parameters: []action.Field{
			{Name: "name", Type: action.TypeString, Description: "Employee name to search for"},
			{Name: "department", Type: action.TypeString, Description: "Department name to filter results"},
			{Name: "email", Type: action.TypeString, Description: "Email address to search for"},
		},
	}
}

func maintenanceDefinition() action.Definition {
	return action.Definition{
		Name:        ScheduleMaintenance,
		Description: "Schedule a maintenance window for a system (administrators only)",
		Parameters: []action.Field{
			{Name: "system", Type: action.TypeString, Required: true, Description: "System name"},
			{Name: "date", Type: action.TypeString, Required: true, Description: "Maintenance date"},
			{Name: "duration", Type: action.TypeString, Required: true, Description: "Expected duration"},
		},
	}
}

type handlers struct {
	deps Deps
}

func (h *handlers) createTicket(ctx context.Context, args action.Arguments) (any, error) {
	t, err := h.deps.Tickets.Create(ctx, ticket.NewTicket{
		Title:       args.String("title"),
		Description: args.String("description"),
		Category:    args.String("category"),
		Priority:    args.String("priority"),
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return t, nil
}

// TicketStatus is the payload of check_ticket_status.
type TicketStatus struct {
	Found               bool   `json:"found"`
	TicketID            string `json:"ticket_id,omitempty"`
	Status              string `json:"status,omitempty"`
	Title               string `json:"title,omitempty"`
	Priority            string `json:"priority,omitempty"`
	CreatedAt           string `json:"created_at,omitempty"`
	EstimatedResolution string `json:"estimated_resolution,omitempty"`
	Message             string `json:"message,omitempty"`
}

func (h *handlers) checkTicket(ctx context.Context, args action.Arguments) (any, error) {
	id := strings.TrimSpace(args.String("ticket_id"))
	t, err := h.deps.Tickets.Get(ctx, id)
	if errors.Is(err, ticket.ErrNotFound) {
		return TicketStatus{Found: false, Message: fmt.Sprintf("Ticket %s not found in the system", id)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup ticket: %w", err)
	}
	return TicketStatus{
		Found:               true,
		TicketID:            t.ID,
		Status:              t.Status,
		Title:               t.Title,
		Priority:            t.Priority,
		CreatedAt:           t.CreatedAt.Format("2006-01-02 15:04:05"),
		EstimatedResolution: t.EstimatedResolution,
	}, nil
}

func (h *handlers) systemStatus(_ context.Context, args action.Arguments) (any, error) {
	name := strings.ReplaceAll(strings.ToLower(args.String("system_name")), " ", "_")
	st, ok := h.deps.Systems[name]
	if !ok {
		return SystemStatus{System: name, Status: "unknown", Message: "System not monitored or invalid system name"}, nil
	}
	st.System = name
	return st, nil
}

func (h *handlers) searchDirectory(_ context.Context, args action.Arguments) (any, error) {
	return SearchDirectory(h.deps.Directory, args.String("name"), args.String("department"), args.String("email")), nil
}

// Maintenance is the payload of schedule_maintenance.
type Maintenance struct {
	Scheduled     bool   `json:"scheduled"`
	MaintenanceID string `json:"maintenance_id"`
	System        string `json:"system"`
	Date          string `json:"date"`
	Duration      string `json:"duration"`
	Notification  string `json:"notification"`
}

func (h *handlers) scheduleMaintenance(_ context.Context, args action.Arguments) (any, error) {
	return Maintenance{
		Scheduled:     true,
		MaintenanceID: "MAINT-" + ulid.Make().String(),
		System:        args.String("system"),
		Date:          args.String("date"),
		Duration:      args.String("duration"),
		Notification:  "Users will be notified 24 hours in advance",
	}, nil
}
