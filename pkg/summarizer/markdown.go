package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used for headings and labels.
func WithTranslator(fn func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = fn
	}
}

// WithVersion adds the tool version to the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Stream Summary"))

	b.WriteString("| | |\n|---|---|\n")
	row(&b, t("File"), s.Stream.Name)
	if s.Stream.Container != "" {
		row(&b, t("Container"), s.Stream.Container)
	}
	row(&b, t("Size"), formatBytes(s.Stream.Bytes))
	b.WriteString("\n")

	if len(s.SPS) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Sequence Parameters"))
		b.WriteString("| ID | Profile | Level | " + t("Resolution") + " | " + t("Reference Frames") + " | FPS | " + t("Matrix") + " |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, sps := range s.SPS {
			fps := "-"
			if sps.FPS > 0 {
				fps = fmt.Sprintf("%.2f", sps.FPS)
			}
			fmt.Fprintf(&b, "| %d | %s | %d.%d | %dx%d | %d | %s | %s |\n",
				sps.ID, profileName(sps.Profile), sps.Level/10, sps.Level%10,
				sps.Width, sps.Height, sps.RefFrames, fps, sps.Matrix)
		}
		b.WriteString("\n")
	}

	if len(s.Units) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("NAL Units"))
		b.WriteString("| Type | " + t("Name") + " | " + t("Count") + " |\n|---|---|---|\n")
		for _, u := range s.Units {
			fmt.Fprintf(&b, "| %d | %s | %d |\n", u.Code, u.Type, u.Count)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## %s\n\n", t("Decoding"))
	b.WriteString("| | |\n|---|---|\n")
	row(&b, t("NAL Units"), fmt.Sprint(s.Decode.Units))
	row(&b, t("Slices"), fmt.Sprint(s.Decode.Slices))
	row(&b, t("Frames"), fmt.Sprintf("%d (%d IDR)", s.Decode.Frames, s.Decode.IDRs))
	row(&b, t("Skipped Units"), fmt.Sprint(s.Decode.Skipped))
	row(&b, t("Concealed Frames"), fmt.Sprint(s.Decode.Concealed))
	if s.Failure != "" {
		row(&b, t("Failure"), s.Failure)
	}
	b.WriteString("\n")

	if s.Sheet != nil {
		fmt.Fprintf(&b, "## %s\n\n", t("Contact Sheet"))
		b.WriteString("| | |\n|---|---|\n")
		row(&b, t("Output"), s.Sheet.Path)
		row(&b, t("Canvas"), fmt.Sprintf("%dx%d", s.Sheet.Width, s.Sheet.Height))
		row(&b, t("Frames"), fmt.Sprint(s.Sheet.Sampled))
		row(&b, t("Size"), formatBytes(s.Sheet.FileSize))
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("%s %s", t("Generated at"), s.GeneratedAt.Format("2006-01-02 15:04:05"))
	if f.version != "" {
		footer += " by h264play " + f.version
	}
	fmt.Fprintf(&b, "---\n%s\n", footer)

	return b.String()
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", label, value)
}

func profileName(idc int) string {
	switch idc {
	case 66:
		return "Baseline"
	case 77:
		return "Main"
	case 88:
		return "Extended"
	case 100:
		return "High"
	}
	return fmt.Sprint(idc)
}

// formatBytes formats a byte count using binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}
