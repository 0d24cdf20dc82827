package emails

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"sort"
	"strings"
	texttemplate "text/template"

	"github.com/nn1-dev/club-api/internal/pkg/mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed campaigns
var campaignFS embed.FS

// Campaign kinds, matching the directories under campaigns/.
const (
	KindNewsletter = "newsletter"
	KindEvent      = "event"
)

// Campaign is a broadcast email authored in Markdown with YAML front matter.
type Campaign struct {
	Key     string
	Kind    string
	Subject string
	EventID int64

	body     *texttemplate.Template
	md       goldmark.Markdown
	renderer *Renderer
}

// CampaignData carries the per-recipient link. Newsletters use UnsubscribeURL, events TicketURL.
type CampaignData struct {
	UnsubscribeURL string
	TicketURL      string
}

type frontMatter struct {
	Subject string `yaml:"subject"`
	EventID int64  `yaml:"event_id"`
}

// Render produces the recipient-specific bodies.
func (c *Campaign) Render(data CampaignData) (mail.Content, error) {
	var src bytes.Buffer
	if err := c.body.Execute(&src, data); err != nil {
		return mail.Content{}, fmt.Errorf("render campaign %s: %w", c.Key, err)
	}
	var body bytes.Buffer
	if err := c.md.Convert(src.Bytes(), &body); err != nil {
		return mail.Content{}, fmt.Errorf("convert campaign %s: %w", c.Key, err)
	}
	html, err := c.renderer.renderCampaign(htmltemplate.HTML(body.String()))
	if err != nil {
		return mail.Content{}, fmt.Errorf("layout campaign %s: %w", c.Key, err)
	}
	text := strings.ReplaceAll(src.String(), "\\\n", "\n")
	return mail.Content{HTML: html, Text: text}, nil
}

// LoadCampaigns parses every embedded campaign, grouped by kind and keyed by file name.
func (r *Renderer) LoadCampaigns() (map[string][]*Campaign, error) {
	return r.loadCampaigns(campaignFS, "campaigns")
}

func (r *Renderer) loadCampaigns(fsys fs.FS, root string) (map[string][]*Campaign, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Linkify))
	out := map[string][]*Campaign{}
	for _, kind := range []string{KindNewsletter, KindEvent} {
		files, err := fs.Glob(fsys, path.Join(root, kind, "*.md"))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
		for _, file := range files {
			raw, err := fs.ReadFile(fsys, file)
			if err != nil {
				return nil, err
			}
			c, err := parseCampaign(strings.TrimSuffix(path.Base(file), ".md"), kind, raw)
			if err != nil {
				return nil, err
			}
			c.md = md
			c.renderer = r
			out[kind] = append(out[kind], c)
		}
	}
	return out, nil
}

func parseCampaign(key, kind string, raw []byte) (*Campaign, error) {
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return nil, fmt.Errorf("campaign %s: missing front matter", key)
	}
	head, body, ok := strings.Cut(content[len("---\n"):], "\n---\n")
	if !ok {
		return nil, fmt.Errorf("campaign %s: unterminated front matter", key)
	}

	var fm frontMatter
	dec := yaml.NewDecoder(strings.NewReader(head))
	dec.KnownFields(true)
	if err := dec.Decode(&fm); err != nil {
		return nil, fmt.Errorf("campaign %s: front matter: %w", key, err)
	}
	if strings.TrimSpace(fm.Subject) == "" {
		return nil, fmt.Errorf("campaign %s: subject is required", key)
	}

	tpl, err := texttemplate.New(key).Option("missingkey=error").Parse(strings.TrimLeft(body, "\n"))
	if err != nil {
		return nil, fmt.Errorf("campaign %s: %w", key, err)
	}
	return &Campaign{Key: key, Kind: kind, Subject: fm.Subject, EventID: fm.EventID, body: tpl}, nil
}
