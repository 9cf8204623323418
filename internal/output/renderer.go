package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/logboard/internal/model"
)

// Renderer writes records to an output stream.
type Renderer interface {
	Render(rec model.Record) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleTime    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	styleDebug   = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleSection = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	styleRun     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleRunID   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Faint(true)
	styleGroup   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleExtra   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleBad     = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("161")).
			Bold(true)
)

// knownFields are rendered in the header or message, not in the extras dump.
var knownFields = map[string]bool{
	"time": true, "level": true, "section": true, "message": true,
	"msg": true, "run_name": true, "run_id": true, "group": true,
	"cache_path": true,
}

// TextRenderer prints records to the terminal with severity-based colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to stdout.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{w: os.Stdout}
}

func (r *TextRenderer) Render(rec model.Record) error {
	if rec.ParseError {
		_, err := fmt.Fprintf(r.w, "%s %s\n",
			styleBad.Render(" failed to parse "), rec.RawText)
		return err
	}

	var parts []string
	if rec.HasTime() {
		parts = append(parts, styleTime.Render(rec.Time.Format("15:04:05")))
	}
	if rec.Level != "" {
		parts = append(parts, styleLevelTag(rec.Level))
	}
	if rec.Section != "" {
		parts = append(parts, styleSection.Render("["+rec.Section+"]"))
	}
	if rec.RunName != "" {
		parts = append(parts, styleRun.Render("run:"+rec.RunName))
	}
	if rec.RunID != "" {
		parts = append(parts, styleRunID.Render("id:"+rec.RunID))
	}
	if rec.Group != "" {
		parts = append(parts, styleGroup.Render("group:"+rec.Group))
	}
	parts = append(parts, rec.Message)

	if _, err := fmt.Fprintln(r.w, strings.Join(parts, " ")); err != nil {
		return err
	}

	if rec.CachePath != "" {
		if _, err := fmt.Fprintln(r.w, styleExtra.Render("  cache: "+rec.CachePath)); err != nil {
			return err
		}
	}

	// Extra fields beyond the well-known ones, in line order.
	var extra model.RawMap
	for _, f := range rec.Raw.Fields() {
		if !knownFields[f.Key] {
			extra.Set(f.Key, f.Value)
		}
	}
	if extra.Len() > 0 {
		raw, err := json.Marshal(extra)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(r.w, styleExtra.Render("  "+string(raw))); err != nil {
			return err
		}
	}
	return nil
}

func styleLevelTag(level string) string {
	padded := fmt.Sprintf("%-5s", level)
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		return styleDebug.Render(padded)
	case "WARN", "WARNING":
		return styleWarn.Render(padded)
	case "ERROR", "FATAL", "CRITICAL":
		return styleError.Render(padded)
	default:
		return styleInfo.Render(padded)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each record's document as one JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

func (r *JSONRenderer) Render(rec model.Record) error {
	return r.enc.Encode(rec.Document())
}
