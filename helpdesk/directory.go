package helpdesk

import "strings"

// SystemStatus describes a monitored system.
type SystemStatus struct {
	System       string `json:"system"`
	Status       string `json:"status"`
	Uptime       string `json:"uptime,omitempty"`
	LastIncident string `json:"last_incident,omitempty"`
	Note         string `json:"note,omitempty"`
	Message      string `json:"message,omitempty"`
}

// DefaultSystems returns the simulated monitoring snapshot.
func DefaultSystems() map[string]SystemStatus {
	return map[string]SystemStatus{
		"email":       {Status: "operational", Uptime: "99.9%", LastIncident: "2 days ago"},
		"vpn":         {Status: "operational", Uptime: "99.5%", LastIncident: "5 days ago"},
		"file_server": {Status: "operational", Uptime: "99.8%", LastIncident: "1 day ago"},
		"internet":    {Status: "operational", Uptime: "99.95%", LastIncident: "10 days ago"},
		"office365":   {Status: "operational", Uptime: "99.9%", LastIncident: "3 days ago"},
		"printer":     {Status: "degraded", Uptime: "95%", LastIncident: "2 hours ago", Note: "Building B printers experiencing delays"},
	}
}

// Employee is a directory record.
type Employee struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
}

// DefaultDirectory returns the IT staff directory.
func DefaultDirectory() []Employee {
	return []Employee{
		{Name: "John Smith", Email: "john.smith@company.com", Department: "IT Support", Phone: "ext. 4357", Location: "Building A, Floor 3"},
		{Name: "Sarah Johnson", Email: "sarah.johnson@company.com", Department: "IT Security", Phone: "ext. 4358", Location: "Building A, Floor 3"},
		{Name: "Mike Chen", Email: "mike.chen@company.com", Department: "Network Admin", Phone: "ext. 4359", Location: "Building A, Floor 3"},
		{Name: "Emily Davis", Email: "emily.davis@company.com", Department: "IT Manager", Phone: "ext. 4350", Location: "Building A, Floor 3"},
	}
}

// SearchDirectory filters employees by case-insensitive substring on each
// non-empty criterion. No criteria returns everyone.
func SearchDirectory(employees []Employee, name, department, email string) []Employee {
	out := make([]Employee, 0, len(employees))
	for _, e := range employees {
		if !containsFold(e.Name, name) || !containsFold(e.Department, department) || !containsFold(e.Email, email) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
