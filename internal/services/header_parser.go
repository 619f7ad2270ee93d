package services

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"

	"sympep-tracker/internal/models"
	"sympep-tracker/internal/utils"

	"gopkg.in/yaml.v3"
)

// Header holds the structured fields of a proposal document template.
type Header struct {
	Title         string
	Authors       []string
	Status        string
	Type          string
	Created       string
	Resolution    string
	DiscussionsTo string
	Replaces      string
}

var (
	headerLine  = regexp.MustCompile(`^\s*(?:[*-]\s+)?\**([A-Za-z][A-Za-z-]*)\s*:\**\s*(.*?)\s*$`)
	emailSuffix = regexp.MustCompile(`\s*<[^>]*>\s*$`)
)

// MaxDocumentSize bounds an imported template and any single line in it.
const MaxDocumentSize = 1 << 20

var createdLayouts = []string{
	"2006-01-02",
	"02-Jan-2006",
	"2-Jan-2006",
	"January 2, 2006",
}

// ParseHeader extracts template fields from a proposal document. The header
// is either YAML front matter or a block of "Key: value" lines at the top,
// optionally after a "# Title" heading. The prose body is ignored.
func ParseHeader(doc []byte) (*Header, error) {
	doc = bytes.TrimPrefix(doc, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimLeft(doc, " \t\r\n")

	var (
		fields  map[string]string
		heading string
		err     error
	)
	if bytes.HasPrefix(trimmed, []byte("---")) {
		fields, err = parseFrontMatter(trimmed)
	} else {
		fields, heading, err = parseHeaderLines(trimmed)
	}
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, validationf("", "document has no header fields")
	}

	h := &Header{
		Title:         fields["title"],
		Status:        fields["status"],
		Type:          fields["type"],
		Created:       fields["created"],
		Resolution:    fields["resolution"],
		DiscussionsTo: firstNonEmpty(fields["discussions-to"], fields["discussion"]),
		Replaces:      fields["replaces"],
		Authors:       splitAuthors(firstNonEmpty(fields["author"], fields["authors"])),
	}
	if h.Title == "" {
		h.Title = heading
	}

	return h, nil
}

func parseFrontMatter(doc []byte) (map[string]string, error) {
	lines := strings.Split(string(doc), "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, validationf("", "front matter is not terminated")
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &raw); err != nil {
		return nil, validationf("", "decode front matter: %v", err)
	}

	fields := make(map[string]string, len(raw))
	for key, node := range raw {
		switch node.Kind {
		case yaml.ScalarNode:
			fields[strings.ToLower(key)] = strings.TrimSpace(node.Value)
		case yaml.SequenceNode:
			values := make([]string, 0, len(node.Content))
			for _, item := range node.Content {
				values = append(values, strings.TrimSpace(item.Value))
			}
			fields[strings.ToLower(key)] = strings.Join(values, ", ")
		}
	}
	return fields, nil
}

// parseHeaderLines reads the Key: value block at the top of doc. Only blank
// lines and one "# Title" heading may precede it; the block ends at the
// first blank or non-matching line.
func parseHeaderLines(doc []byte) (map[string]string, string, error) {
	fields := make(map[string]string)
	var (
		heading string
		lastKey string
		started bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(doc))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxDocumentSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			if started {
				break
			}
			continue
		}

		if !started && heading == "" && strings.HasPrefix(line, "#") {
			heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			continue
		}

		// Folded continuation of the previous field
		if started && (line[0] == ' ' || line[0] == '\t') && lastKey != "" && !headerLine.MatchString(line) {
			fields[lastKey] = strings.TrimSpace(fields[lastKey] + " " + strings.TrimSpace(line))
			continue
		}

		m := headerLine.FindStringSubmatch(line)
		if m == nil {
			break
		}

		started = true
		lastKey = strings.ToLower(m[1])
		fields[lastKey] = strings.TrimSpace(strings.Trim(m[2], "*"))
	}
	if err := scanner.Err(); err != nil {
		return nil, "", validationf("", "unreadable document: %v", err)
	}

	return fields, heading, nil
}

func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	authors := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if stripped := strings.TrimSpace(emailSuffix.ReplaceAllString(part, "")); stripped != "" {
			part = stripped
		}
		part = strings.TrimPrefix(part, "@")
		if part != "" {
			authors = append(authors, part)
		}
	}
	return authors
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseCreated parses a template "Created" date. An empty value means today.
func ParseCreated(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return dateOf(time.Now().UTC()), nil
	}
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOf(t), nil
		}
	}
	return time.Time{}, validationf("", "unrecognized created date %q", s)
}

// Import creates a Draft proposal from the header of a template document.
// The resolution and replaces fields are stored, and Discussions-To becomes
// the first discussion link.
func (s *ProposalService) Import(ctx context.Context, doc []byte, actor string) (p *models.Proposal, err error) {
	defer observe("import", &err)

	if len(doc) > MaxDocumentSize {
		return nil, validationf("", "document exceeds %d bytes", MaxDocumentSize)
	}

	h, err := ParseHeader(doc)
	if err != nil {
		return nil, err
	}

	if h.Status != "" && !strings.EqualFold(h.Status, string(models.ProposalStatusDraft)) {
		return nil, validationf("", "imported proposals start as Draft, header says %q", h.Status)
	}

	proposalType, ok := models.ParseProposalType(h.Type)
	if !ok {
		return nil, validationf("", "unknown proposal type %q", h.Type)
	}

	created, err := ParseCreated(h.Created)
	if err != nil {
		return nil, err
	}

	draft, err := buildProposal(h.Title, proposalType, created, h.Authors)
	if err != nil {
		return nil, err
	}

	if h.Resolution != "" {
		resolution := h.Resolution
		draft.Resolution = &resolution
	}

	if h.Replaces != "" {
		ref, err := utils.ParseRef(h.Replaces)
		if err != nil || ref.Number == 0 {
			return nil, validationf("", "replaces must name a proposal number, got %q", h.Replaces)
		}
		replaces := ref.Number
		draft.Replaces = &replaces
	}

	np := &newProposal{proposal: draft, actor: strings.TrimSpace(actor)}
	if h.DiscussionsTo != "" {
		np.discussions = []string{h.DiscussionsTo}
	}

	return s.insert(ctx, np)
}
