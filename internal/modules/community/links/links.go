// Package links builds the client-facing URLs embedded in emails.
package links

import (
	"net/url"
	"strconv"
	"strings"
)

// Builder joins paths onto the public client URL.
type Builder struct {
	base string
}

func New(base string) Builder {
	return Builder{base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

func (b Builder) join(parts ...string) string {
	var sb strings.Builder
	sb.WriteString(b.base)
	for _, p := range parts {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(p))
	}
	return sb.String()
}

// SubscriberConfirm embeds the subscriber id and its confirmation token.
func (b Builder) SubscriberConfirm(id, token string) string {
	return b.join("newsletter", "confirm", id, token)
}

// Unsubscribe embeds the subscriber id.
func (b Builder) Unsubscribe(id string) string {
	return b.join("newsletter", "unsubscribe", id)
}

// TicketConfirm embeds the event, the ticket id and its confirmation token.
func (b Builder) TicketConfirm(eventID int64, id, token string) string {
	return b.join("events", strconv.FormatInt(eventID, 10), "confirm", id, token)
}

// Ticket embeds the event and the ticket id.
func (b Builder) Ticket(eventID int64, id string) string {
	return b.join("events", strconv.FormatInt(eventID, 10), id)
}
