package emails

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestRenderTransactional(t *testing.T) {
	r := MustRenderer()
	tests := []struct {
		tpl  Template
		data interface{}
		want []string
	}{
		{SignupConfirm, SignupConfirmData{EventName: "#10", URL: "https://nn1.dev/events/10/confirm/t/k"}, []string{"#10", "https://nn1.dev/events/10/confirm/t/k"}},
		{SignupSuccess, SignupSuccessData{TicketURL: "https://nn1.dev/events/10/t", EventName: "#10", EventDate: "Thursday", EventLocation: "Vulcan Works", InviteURLICal: "https://ics", InviteURLGoogle: "https://g"}, []string{"Vulcan Works", "https://nn1.dev/events/10/t", "https://ics"}},
		{NewsletterConfirm, LinkData{URL: "https://nn1.dev/newsletter/confirm/s/k"}, []string{"https://nn1.dev/newsletter/confirm/s/k"}},
		{AdminSignupSuccess, AttendeeData{Name: "Ada", Email: "ada@x.com"}, []string{"Ada", "ada@x.com"}},
		{AdminSignupCancel, AttendeeData{Name: "Ada", Email: "ada@x.com"}, []string{"Ticket cancelled"}},
		{AdminNewsletterSubscribe, EmailData{Email: "ada@x.com"}, []string{"ada@x.com"}},
		{AdminNewsletterUnsubscribe, EmailData{Email: "ada@x.com"}, []string{"ada@x.com"}},
		{AdminFeedback, FeedbackData{Name: "Ada", Feedback: "More pizza"}, []string{"More pizza"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.tpl), func(t *testing.T) {
			got, err := r.Render(tt.tpl, tt.data)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if tt.tpl.Subject() == "" {
				t.Error("empty subject")
			}
			for _, w := range tt.want {
				if !strings.Contains(got.HTML, w) {
					t.Errorf("html missing %q", w)
				}
				if !strings.Contains(got.Text, w) {
					t.Errorf("text missing %q", w)
				}
			}
			if strings.Contains(got.Text, "<p") {
				t.Error("text body contains markup")
			}
		})
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	got, err := MustRenderer().Render(AdminFeedback, FeedbackData{Name: "<script>", Feedback: "x"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(got.HTML, "<script>") {
		t.Error("html body not escaped")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := MustRenderer().Render(Template("nope"), nil); err == nil {
		t.Fatal("Render(nope) succeeded")
	}
}

func TestEmbeddedCampaigns(t *testing.T) {
	r := MustRenderer()
	all, err := r.LoadCampaigns()
	if err != nil {
		t.Fatalf("LoadCampaigns: %v", err)
	}
	var news *Campaign
	for _, c := range all[KindNewsletter] {
		if c.Key == "2025-12-06" {
			news = c
		}
	}
	if news == nil {
		t.Fatal("newsletter 2025-12-06 not loaded")
	}
	if news.Subject != "✨ NN1 Dev Club #10" {
		t.Errorf("Subject = %q", news.Subject)
	}
	body, err := news.Render(CampaignData{UnsubscribeURL: "https://nn1.dev/newsletter/unsubscribe/s1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(body.HTML, `href="https://nn1.dev/newsletter/unsubscribe/s1"`) {
		t.Error("html missing unsubscribe link")
	}
	if !strings.Contains(body.Text, "https://nn1.dev/newsletter/unsubscribe/s1") {
		t.Error("text missing unsubscribe link")
	}
	if strings.Contains(body.Text, "\\\n") {
		t.Error("text keeps markdown hard-break markers")
	}

	if len(all[KindEvent]) == 0 || all[KindEvent][0].EventID != 10 {
		t.Errorf("event campaigns = %+v", all[KindEvent])
	}
}

func TestParseCampaignErrors(t *testing.T) {
	r := MustRenderer()
	tests := map[string]string{
		"no front matter": "hello",
		"no subject":      "---\nevent_id: 1\n---\nbody",
		"unknown field":   "---\nsubject: x\nfrom: y\n---\nbody",
		"unterminated":    "---\nsubject: x\nbody",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"c/newsletter/bad.md": {Data: []byte(src)}}
			if _, err := r.loadCampaigns(fsys, "c"); err == nil {
				t.Fatal("loadCampaigns succeeded, want error")
			}
		})
	}
}
