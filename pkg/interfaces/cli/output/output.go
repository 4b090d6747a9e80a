package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vsinha/requisition/pkg/application/dto"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/infrastructure/metrics"
)

// Formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidateFormat rejects unknown output formats
func ValidateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Printer renders command results as text tables or JSON
type Printer struct {
	w      io.Writer
	format string
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, format string) *Printer {
	return &Printer{w: w, format: format}
}

func (p *Printer) json(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

// Message prints a one-line confirmation. JSON output wraps it in an object.
func (p *Printer) Message(format string, args ...interface{}) error {
	message := fmt.Sprintf(format, args...)
	if p.format == FormatJSON {
		return p.json(map[string]string{"message": message})
	}
	_, err := fmt.Fprintln(p.w, message)
	return err
}

// Profile prints the signed-in user
func (p *Printer) Profile(user entities.UserProfile) error {
	if p.format == FormatJSON {
		return p.json(user)
	}
	fmt.Fprintf(p.w, "👤 %s <%s>\n", user.DisplayName(), user.Email)
	if user.RoleDisplay != "" || user.Role != "" {
		role := user.RoleDisplay
		if role == "" {
			role = string(user.Role)
		}
		fmt.Fprintf(p.w, "Role: %s\n", role)
	}
	if user.DepartmentCode != "" {
		fmt.Fprintf(p.w, "Department: %s\n", user.DepartmentCode)
	}
	if user.PasswordResetRequired {
		fmt.Fprintf(p.w, "⚠️  Password reset required\n")
	}
	return nil
}

// Stock prints stock levels
func (p *Printer) Stock(levels []entities.StockLevel) error {
	summaries := dto.NewStockSummaries(levels)
	if p.format == FormatJSON {
		return p.json(summaries)
	}
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(p.w, "No stock levels found.")
		return err
	}

	fmt.Fprintf(p.w, "%-6s %-15s %-30s %-10s %-8s %-12s\n", "ID", "Type", "Name", "Available", "Unit", "Status")
	fmt.Fprintf(p.w, "%-6s %-15s %-30s %-10s %-8s %-12s\n",
		"------", "---------------", "------------------------------", "----------", "--------", "------------")
	for _, s := range summaries {
		fmt.Fprintf(p.w, "%-6d %-15s %-30s %-10d %-8s %-12s\n",
			s.VariantID, truncate(s.Type, 15), truncate(s.Name, 30), s.Available, s.Unit, s.Status)
	}
	return nil
}

// Cart prints the working cart
func (p *Printer) Cart(cart entities.Cart) error {
	summary := dto.NewCartSummary(cart)
	if p.format == FormatJSON {
		return p.json(summary)
	}
	if summary.LineCount == 0 {
		_, err := fmt.Fprintln(p.w, "🛒 Cart is empty.")
		return err
	}

	fmt.Fprintf(p.w, "🛒 Cart: %d line(s), %d item(s)\n", summary.LineCount, summary.ItemCount)
	fmt.Fprintf(p.w, "%-6s %-30s %-8s %-8s\n", "ID", "Name", "Qty", "Unit")
	fmt.Fprintf(p.w, "%-6s %-30s %-8s %-8s\n", "------", "------------------------------", "--------", "--------")
	for _, line := range summary.Lines {
		fmt.Fprintf(p.w, "%-6d %-30s %-8d %-8s\n", line.VariantID, truncate(line.Name, 30), line.Quantity, line.Unit)
	}
	return nil
}

// Requests prints a request list
func (p *Printer) Requests(records []entities.RequestRecord) error {
	summaries := dto.NewRequestSummaries(records)
	if p.format == FormatJSON {
		return p.json(summaries)
	}
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(p.w, "No requests found.")
		return err
	}

	fmt.Fprintf(p.w, "%-6s %-22s %-20s %-8s %-10s %-10s\n", "ID", "Number", "Status", "Items", "Fulfilled", "Actions")
	fmt.Fprintf(p.w, "%-6s %-22s %-20s %-8s %-10s %-10s\n",
		"------", "----------------------", "--------------------", "--------", "----------", "----------")
	for _, s := range summaries {
		fmt.Fprintf(p.w, "%-6d %-22s %-20s %-8d %-10s %-10s\n",
			s.ID, s.Number, truncate(s.StatusLabel, 20), s.TotalRequested,
			s.FulfillmentPercent.StringFixed(1)+"%", actions(s.Actions))
	}
	return nil
}

// Request prints one request with its lines and approvals
func (p *Printer) Request(record entities.RequestRecord) error {
	s := dto.NewRequestSummary(record)
	if p.format == FormatJSON {
		return p.json(s)
	}

	fmt.Fprintf(p.w, "📋 Request %s (#%d)\n", s.Number, s.ID)
	fmt.Fprintf(p.w, "Status: %s\n", s.StatusLabel)
	fmt.Fprintf(p.w, "Created: %s\n", s.CreatedAt.Format("2006-01-02 15:04"))
	if s.SubmittedAt != nil {
		fmt.Fprintf(p.w, "Submitted: %s\n", s.SubmittedAt.Format("2006-01-02 15:04"))
	}
	if s.ReceivedAt != nil {
		fmt.Fprintf(p.w, "Received: %s\n", s.ReceivedAt.Format("2006-01-02 15:04"))
	}
	if s.SPMBNumber != "" {
		fmt.Fprintf(p.w, "SPMB: %s\n", s.SPMBNumber)
	}
	fmt.Fprintln(p.w)

	fmt.Fprintf(p.w, "%-6s %-30s %-10s %-10s %-8s %-10s\n", "ID", "Name", "Requested", "Approved", "Issued", "Fulfilled")
	fmt.Fprintf(p.w, "%-6s %-30s %-10s %-10s %-8s %-10s\n",
		"------", "------------------------------", "----------", "----------", "--------", "----------")
	for _, line := range s.Lines {
		approved := "-"
		if line.Approved != nil {
			approved = fmt.Sprintf("%d", *line.Approved)
		}
		fmt.Fprintf(p.w, "%-6d %-30s %-10d %-10s %-8d %-10s\n",
			line.VariantID, truncate(line.Name, 30), line.Requested, approved, line.Issued,
			line.FulfillmentPercent.StringFixed(1)+"%")
	}

	if len(s.Approvals) > 0 {
		fmt.Fprintf(p.w, "\nApprovals:\n")
		for _, a := range s.Approvals {
			approver := a.Approver
			if approver == "" {
				approver = "-"
			}
			line := fmt.Sprintf("  %-9s %s", a.Stage, approver)
			if a.DecidedAt != nil {
				line += " at " + a.DecidedAt.Format("2006-01-02 15:04")
			}
			if a.RejectionReason != "" {
				line += " (rejected: " + a.RejectionReason + ")"
			}
			fmt.Fprintln(p.w, line)
		}
	}

	fmt.Fprintf(p.w, "\nActions: %s\n", actions(s.Actions))
	return nil
}

// Diagnostics is the payload of the diag command
type Diagnostics struct {
	Session     string              `json:"session"`
	User        string              `json:"user,omitempty"`
	CartLines   int                 `json:"cart_lines"`
	ReplayLines int                 `json:"replay_lines"`
	Events      int                 `json:"events"`
	Calls       []metrics.CallCount `json:"backend_calls"`
}

// Diag prints diagnostics
func (p *Printer) Diag(d Diagnostics) error {
	if p.format == FormatJSON {
		return p.json(d)
	}
	fmt.Fprintf(p.w, "Session: %s\n", d.Session)
	if d.User != "" {
		fmt.Fprintf(p.w, "User: %s\n", d.User)
	}
	fmt.Fprintf(p.w, "Cart lines: %d (journal replay: %d)\n", d.CartLines, d.ReplayLines)
	fmt.Fprintf(p.w, "Events: %d\n", d.Events)
	fmt.Fprintf(p.w, "\n%-20s %-12s %-8s\n", "Endpoint", "Outcome", "Calls")
	fmt.Fprintf(p.w, "%-20s %-12s %-8s\n", "--------------------", "------------", "--------")
	for _, c := range d.Calls {
		fmt.Fprintf(p.w, "%-20s %-12s %-8.0f\n", c.Endpoint, c.Outcome, c.Count)
	}
	return nil
}

func actions(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ",")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
