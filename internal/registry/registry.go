package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sympep-tracker/internal/models"
	"sympep-tracker/internal/utils"
)

// Writer publishes a rendered index document
type Writer interface {
	Write(doc []byte) error
}

// Render builds the Markdown index of every numbered proposal. Unnumbered
// proposals are skipped.
func Render(proposals []*models.Proposal, generatedAt time.Time) []byte {
	numbered := make([]*models.Proposal, 0, len(proposals))
	for _, p := range proposals {
		if p.Number != nil {
			numbered = append(numbered, p)
		}
	}
	sort.Slice(numbered, func(i, j int) bool {
		return *numbered[i].Number < *numbered[j].Number
	})

	var buf bytes.Buffer
	buf.WriteString("# SymPEP-0000: Index of SymPy Enhancement Proposals\n\n")
	fmt.Fprintf(&buf, "Generated %s.\n\n", generatedAt.UTC().Format(time.RFC3339))
	buf.WriteString("| Number | Title | Type | Status | Champions | Resolution |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")

	for _, p := range numbered {
		resolution := ""
		if p.HasResolution() {
			resolution = fmt.Sprintf("[link](%s)", linkTarget(*p.Resolution))
		}
		fmt.Fprintf(&buf, "| %s | %s | %s | %s | %s | %s |\n",
			utils.FormatNumber(*p.Number),
			cell(p.Title),
			p.Type,
			statusCell(p),
			cell(strings.Join(p.ChampionHandles(), ", ")),
			resolution,
		)
	}

	return buf.Bytes()
}

func statusCell(p *models.Proposal) string {
	if p.Status == models.ProposalStatusSuperseded && p.SupersededBy != nil {
		return fmt.Sprintf("%s by %s", p.Status, utils.FormatNumber(*p.SupersededBy))
	}
	return string(p.Status)
}

// cell keeps a value inside its table column
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// Percent-encodes the characters that would end a link destination or
// split the table row.
var linkEscaper = strings.NewReplacer(
	"%", "%25",
	"|", "%7C",
	"(", "%28",
	")", "%29",
	"<", "%3C",
	">", "%3E",
	" ", "%20",
)

func linkTarget(s string) string {
	return linkEscaper.Replace(strings.TrimSpace(s))
}

// FileWriter replaces a file on disk. Readers never see a partial document.
type FileWriter struct {
	Path string
}

func NewFileWriter(path string) *FileWriter {
	return &FileWriter{Path: path}
}

func (w *FileWriter) Write(doc []byte) error {
	dir := filepath.Dir(w.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".registry-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close registry: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set registry permissions: %w", err)
	}

	if err := os.Rename(tmpName, w.Path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}
