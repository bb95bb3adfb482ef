package relay

import (
	"fmt"
	"strings"
)

// Tool names whose responses carry a Zendesk connector payload that gets a
// secondary human-readable rendering on the caller stream.
const (
	toolListTickets = "zendesk_list_tickets"
	toolGetTicket   = "zendesk_get_tickets"
)

const ticketListCap = 5

// renderTicketResponse returns the human-readable rendering for recognized
// ticket tool responses, or "" when the tool or payload shape is not one the
// relay knows how to summarize.
func renderTicketResponse(toolName string, response map[string]any) string {
	if response == nil {
		return ""
	}
	payload, ok := response["connectorOutputPayload"]
	if !ok || payload == nil {
		return ""
	}
	switch toolName {
	case toolListTickets:
		list, ok := payload.([]any)
		if !ok {
			return ""
		}
		return renderTicketList(list)
	case toolGetTicket:
		ticket, ok := payload.(map[string]any)
		if !ok {
			return ""
		}
		return renderTicketDetail(ticket)
	}
	return ""
}

// renderTicketList formats a multi-ticket listing as a numbered list capped
// at ticketListCap entries with an overflow count.
func renderTicketList(tickets []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "■ Found %d tickets:\n\n", len(tickets))
	for i, t := range tickets {
		if i == ticketListCap {
			break
		}
		ticket, _ := t.(map[string]any)
		subject := firstString(ticket, "Subject", "RawSubject")
		if subject == "" {
			subject = "No subject"
		}
		status := firstString(ticket, "Status")
		if status == "" {
			status = "unknown"
		}
		priority := firstString(ticket, "Priority")
		if priority == "" {
			priority = "None"
		}
		fmt.Fprintf(&b, "%d. Ticket #%s: %s\n", i+1, ticketID(ticket), subject)
		fmt.Fprintf(&b, "   Status: %s, Priority: %s\n\n", status, priority)
	}
	if len(tickets) > ticketListCap {
		fmt.Fprintf(&b, "... and %d more tickets\n", len(tickets)-ticketListCap)
	}
	return b.String()
}

// renderTicketDetail formats a single ticket as a field-by-field block.
// Priority is always printed ("null" when absent) to match the connector's
// verbose detail view; other optional fields are skipped when empty.
func renderTicketDetail(ticket map[string]any) string {
	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "**Id:** %s\n", ticketID(ticket))
	if subject := firstString(ticket, "Subject", "RawSubject"); subject != "" {
		fmt.Fprintf(&b, "**Subject:** %s\n", subject)
	}
	if desc := firstString(ticket, "Description"); desc != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", desc)
	}
	if status := firstString(ticket, "Status"); status != "" {
		fmt.Fprintf(&b, "**Status:** %s\n", status)
	}
	if priority := firstString(ticket, "Priority"); priority != "" {
		fmt.Fprintf(&b, "**Priority:** %s\n", priority)
	} else {
		b.WriteString("**Priority:** null\n")
	}
	if requester := numericField(ticket, "RequesterId"); requester != "" {
		fmt.Fprintf(&b, "**Creator:** %s\n", requester)
	}
	if created := firstString(ticket, "CreatedAt"); created != "" {
		fmt.Fprintf(&b, "**Created Time:** %s\n", created)
	}
	if updated := firstString(ticket, "UpdatedAt"); updated != "" {
		fmt.Fprintf(&b, "**Updated Time:** %s\n", updated)
	}
	return b.String()
}

func ticketID(ticket map[string]any) string {
	id := numericField(ticket, "Id")
	if id == "" {
		return "N/A"
	}
	return id
}

// numericField renders an identifier field. Connector payloads store numeric
// ids as floating point; whole floats are coerced to integer display.
func numericField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%d", int64(v))
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// firstString returns the first non-empty string among the named keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
