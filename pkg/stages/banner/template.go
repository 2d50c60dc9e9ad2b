package banner

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/user/h264play/pkg/pipeline"
)

// DefaultSubtitle is the template for the line under the stream name.
const DefaultSubtitle = `{{.Resolution}} · {{.Frames}} frames{{if .Sampled}} ({{.Sampled}} shown){{end}}{{if .FPS}} · {{.FPS}}{{end}}`

// Property is a labelled value in the banner footer.
type Property struct {
	Label string
	Value string
}

// TemplateVars contains the values printed on the banner.
type TemplateVars struct {
	MainTitle  string
	Resolution string
	Frames     int
	Sampled    int
	FPS        string
	Credit     string
	CreatedAt  string
	Properties []Property
}

// NewTemplateVars creates template variables from banner input.
func NewTemplateVars(input pipeline.BannerInput) TemplateVars {
	credit := input.Credit
	if credit == "" {
		credit = "h264play"
	}
	vars := TemplateVars{
		MainTitle:  input.Name,
		Resolution: fmt.Sprintf("%dx%d", input.Size.Width, input.Size.Height),
		Frames:     input.Frames,
		Credit:     credit,
		CreatedAt:  time.Now().Format("2006/01/02 15:04:05"),
		Properties: []Property{
			{Label: "Profile", Value: fmt.Sprintf("%s %s", ProfileName(input.Profile), LevelName(input.Level))},
		},
	}
	if input.Sampled > 0 && input.Sampled < input.Frames {
		vars.Sampled = input.Sampled
	}
	if input.FPS > 0 {
		vars.FPS = fmt.Sprintf("%.2f fps", input.FPS)
	}
	if input.Matrix != "" {
		vars.Properties = append(vars.Properties, Property{Label: "Matrix", Value: input.Matrix})
	}
	return vars
}

// RenderSubtitle executes tmpl against vars. An empty tmpl selects DefaultSubtitle.
func RenderSubtitle(vars TemplateVars, tmpl string) (string, error) {
	if tmpl == "" {
		tmpl = DefaultSubtitle
	}
	t, err := template.New("subtitle").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// ProfileName returns the name of an H.264 profile_idc.
func ProfileName(idc int) string {
	switch idc {
	case 66:
		return "Baseline"
	case 77:
		return "Main"
	case 88:
		return "Extended"
	case 100:
		return "High"
	default:
		return fmt.Sprintf("profile %d", idc)
	}
}

// LevelName formats level_idc as major.minor.
func LevelName(idc int) string {
	return fmt.Sprintf("%d.%d", idc/10, idc%10)
}
