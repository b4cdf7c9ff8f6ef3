package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// Formatter defines the interface for formatting a Summary.
type Formatter interface {
	// Format converts a Summary to a formatted string.
	Format(summary *Summary) string
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(summary *Summary) string

// Format implements the Formatter interface.
func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// NewMarkdownFormatter returns a Formatter producing a Markdown report.
func NewMarkdownFormatter() Formatter {
	return FormatFunc(formatMarkdown)
}

func formatMarkdown(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Playback Summary\n\n")
	fmt.Fprintf(&b, "Generated at %s\n\n", s.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Video\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	row(&b, "File", s.Video.Path)
	row(&b, "Codec", s.Video.MimeType)
	row(&b, "Size", fmt.Sprintf("%dx%d", s.Video.Width, s.Video.Height))
	row(&b, "Duration", formatMs(s.Video.Duration))
	b.WriteString("\n")

	b.WriteString("## Settings\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	row(&b, "Output strategy", s.Settings.OutputStrategy)
	row(&b, "Frame skip", onOff(s.Settings.FrameSkip))
	row(&b, "Render size", fmt.Sprintf("%dx%d", s.Settings.RenderWidth, s.Settings.RenderHeight))
	row(&b, "Render rate", fmt.Sprintf("%g fps", s.Settings.FPS))
	b.WriteString("\n")

	b.WriteString("## Playback\n\n")
	b.WriteString("| Counter | Value |\n|---------|-------|\n")
	row(&b, "Decoded", fmt.Sprint(s.Playback.Decoded))
	row(&b, "Presented", fmt.Sprint(s.Playback.Presented))
	row(&b, "Skipped", fmt.Sprintf("%d (%.1f%%)", s.Playback.Skipped, s.SkipRate()*100))
	row(&b, "Backwards", fmt.Sprint(s.Playback.Backwards))
	row(&b, "Slept", formatMs(s.Playback.Slept))
	row(&b, "Position", formatMs(s.Playback.Position))
	row(&b, "Wall time", formatMs(s.Playback.Elapsed))
	b.WriteString("\n")

	b.WriteString("## Handoff\n\n")
	b.WriteString("| Counter | Value |\n|---------|-------|\n")
	row(&b, "Published", fmt.Sprint(s.Handoff.Published))
	row(&b, "Overwritten", fmt.Sprint(s.Handoff.Overwritten))
	row(&b, "Notifications", fmt.Sprint(s.Handoff.Notifications))
	row(&b, "Conversions", fmt.Sprint(s.Handoff.Conversions))
	row(&b, "Saved frames", fmt.Sprint(s.Handoff.SavedFrames))

	if s.Error != "" {
		b.WriteString("\n## Error\n\n")
		fmt.Fprintf(&b, "```\n%s\n```\n", s.Error)
	}
	return b.String()
}

func row(b *strings.Builder, name, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(b, "| %s | %s |\n", name, value)
}

func formatMs(d time.Duration) string {
	return fmt.Sprintf("%d ms", d.Milliseconds())
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
