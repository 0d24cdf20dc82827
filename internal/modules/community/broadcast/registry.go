package broadcast

import (
	"sort"

	"github.com/nn1-dev/club-api/internal/emails"
	"github.com/nn1-dev/club-api/internal/pkg/mail"
)

// RenderFunc renders a broadcast around one recipient's link.
type RenderFunc func(link string) (mail.Content, error)

// Template is a registered broadcast.
type Template struct {
	Subject string
	Render  RenderFunc
	// EventID, when set, restricts an event broadcast to that event.
	EventID int64
}

// Registry maps template keys to broadcasts.
type Registry map[string]Template

// Keys returns the registered keys in sorted order.
func (r Registry) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewsletterRegistry registers campaigns whose link is the unsubscribe URL.
func NewsletterRegistry(campaigns []*emails.Campaign) Registry {
	r := make(Registry, len(campaigns))
	for _, c := range campaigns {
		r[c.Key] = Template{
			Subject: c.Subject,
			Render: func(link string) (mail.Content, error) {
				return c.Render(emails.CampaignData{UnsubscribeURL: link})
			},
		}
	}
	return r
}

// EventRegistry registers campaigns whose link is the attendee's ticket URL.
func EventRegistry(campaigns []*emails.Campaign) Registry {
	r := make(Registry, len(campaigns))
	for _, c := range campaigns {
		r[c.Key] = Template{
			Subject: c.Subject,
			EventID: c.EventID,
			Render: func(link string) (mail.Content, error) {
				return c.Render(emails.CampaignData{TicketURL: link})
			},
		}
	}
	return r
}
