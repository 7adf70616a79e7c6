package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/roster"
)

//go:embed designs/*.gohtml
var designFS embed.FS

// Design describes one selectable layout.
type Design struct {
	ID       string
	Name     string
	Category string
	Palette  Palette
	// NameSize is the base font size of the student name, in rem.
	NameSize float64
	// InstitutionSize is the default institution font size, in px.
	InstitutionSize int
}

// FallbackDesign is used when a configuration names an unknown design.
const FallbackDesign = "secundaria-01"

var designs = []Design{
	{
		ID: "inicial-01", Name: "Alegría Infantil", Category: "Infantil",
		Palette:  Palette{Primary: "#FB923C", Secondary: "#F472B6", Background: "#FFF7ED", Text: "#1e293b"},
		NameSize: 3.2, InstitutionSize: 26,
	},
	{
		ID: "primaria-01", Name: "Mérito Académico", Category: "Primaria",
		Palette:  Palette{Primary: "#2563EB", Secondary: "#FBBF24", Background: "#ffffff", Text: "#1e293b"},
		NameSize: 3.75, InstitutionSize: 28,
	},
	{
		ID: "secundaria-01", Name: "Solemne Clásico", Category: "Secundaria",
		Palette:  Palette{Primary: "#0F172A", Secondary: "#D97706", Background: "#FAFAF9", Text: "#1e293b"},
		NameSize: 2.25, InstitutionSize: 18,
	},
	{
		ID: "secundaria-02", Name: "Horizonte Académico", Category: "Secundaria",
		Palette:  Palette{Primary: "#1E3A5F", Secondary: "#C9A227", Background: "#FEFEFE", Text: "#1E293B"},
		NameSize: 3, InstitutionSize: 18,
	},
}

// Designs returns the available designs.
func Designs() []Design {
	return append([]Design(nil), designs...)
}

// LookupDesign returns the design with the given id, or the fallback design
// and false.
func LookupDesign(id string) (Design, bool) {
	var fallback Design
	for _, d := range designs {
		if d.ID == id {
			return d, true
		}
		if d.ID == FallbackDesign {
			fallback = d
		}
	}
	return fallback, false
}

// HTMLRenderer renders the embedded designs with html/template.
type HTMLRenderer struct {
	tpl *template.Template
}

var _ Renderer = (*HTMLRenderer)(nil)

// NewRenderer parses the embedded designs.
func NewRenderer() (*HTMLRenderer, error) {
	tpl, err := template.New("designs").ParseFS(designFS, "designs/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("templates: parsing designs: %w", err)
	}
	for _, d := range designs {
		if tpl.Lookup(d.ID) == nil {
			return nil, fmt.Errorf("templates: design %q has no template", d.ID)
		}
	}
	return &HTMLRenderer{tpl: tpl}, nil
}

// MustNewRenderer is like NewRenderer but panics on error. The designs are
// embedded, so an error is a build defect.
func MustNewRenderer() *HTMLRenderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// view is the data every design template receives.
type view struct {
	Config  config.Configuration
	Student roster.Student
	Palette cssPalette

	Logos      []template.URL
	LeftLogos  []template.URL
	RightLogos []template.URL
	Signers    []signerView

	Body            template.HTML
	NameSize        template.CSS
	InstitutionSize template.CSS
}

type cssPalette struct {
	Primary, Secondary, Background, Text template.CSS
}

type signerView struct {
	Name  string
	Role  string
	Image template.URL
}

type pageView struct {
	Design  string
	Width   int
	Height  int
	Zoom    template.CSS
	Content template.HTML
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(cfg config.Configuration, s roster.Student, opts RenderOptions) (*Document, error) {
	d, _ := LookupDesign(cfg.Design)
	pal := resolvePalette(cfg.Palette, d.Palette)

	doc := &Document{
		Design:  d.ID,
		Width:   Width,
		Height:  Height,
		Zoom:    opts.Zoom,
		Palette: pal,
	}
	if doc.Zoom <= 0 {
		doc.Zoom = 1
	}

	v := view{
		Config:  cfg,
		Student: s,
		Palette: cssPalette{
			Primary:    template.CSS(pal.Primary),
			Secondary:  template.CSS(pal.Secondary),
			Background: template.CSS(pal.Background),
			Text:       template.CSS(pal.Text),
		},
		Body:     ProcessText(cfg.TemplateText, cfg, s),
		NameSize: template.CSS(formatFloat(AdaptiveFontSize(s.Name, d.NameSize)) + "rem"),
	}
	instSize := cfg.InstitutionFontSize
	if instSize <= 0 {
		instSize = d.InstitutionSize
	}
	v.InstitutionSize = template.CSS(strconv.Itoa(instSize) + "px")

	for _, l := range cfg.Logos {
		if u, ok := imageURL(l.Src); ok {
			v.Logos = append(v.Logos, u)
			doc.Images = append(doc.Images, l.Src)
		}
	}
	mid := (len(v.Logos) + 1) / 2
	v.LeftLogos, v.RightLogos = v.Logos[:mid], v.Logos[mid:]

	lines := Lines{
		Institution: cfg.InstitutionName,
		Motto:       cfg.Motto,
		Title:       cfg.Title,
		Subtitle:    cfg.Subtitle,
		Name:        s.Name,
		NameScale:   nameScale(s.Name),
		Body:        PlainText(cfg.TemplateText, cfg, s),
		DatePlace:   cfg.DatePlace,
	}
	for _, sg := range cfg.Signers {
		sv := signerView{Name: sg.Name, Role: sg.Role}
		if u, ok := imageURL(sg.SignatureImage); ok {
			sv.Image = u
			doc.Images = append(doc.Images, sg.SignatureImage)
		}
		v.Signers = append(v.Signers, sv)
		lines.Signers = append(lines.Signers, SignerLine{Name: sg.Name, Role: sg.Role})
	}
	doc.Text = lines

	var content bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&content, d.ID, v); err != nil {
		return nil, fmt.Errorf("templates: rendering %s: %w", d.ID, err)
	}

	pv := pageView{
		Design:  d.ID,
		Width:   Width,
		Height:  Height,
		Content: template.HTML(content.String()),
	}
	if doc.Zoom != 1 {
		pv.Zoom = template.CSS("transform: scale(" + formatFloat(doc.Zoom) + "); transform-origin: top left;")
	}
	var page bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&page, "page", pv); err != nil {
		return nil, fmt.Errorf("templates: rendering page: %w", err)
	}
	doc.HTML = page.String()
	return doc, nil
}

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func resolvePalette(p config.Palette, def Palette) Palette {
	pick := func(v, d string) string {
		if hexColorRe.MatchString(v) {
			return v
		}
		return d
	}
	return Palette{
		Primary:    pick(p.Primary, def.Primary),
		Secondary:  pick(p.Secondary, def.Secondary),
		Background: pick(p.Background, def.Background),
		Text:       pick(p.Text, def.Text),
	}
}

// imageURL accepts remote, file and embedded image references.
func imageURL(src string) (template.URL, bool) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", false
	}
	lower := strings.ToLower(src)
	for _, prefix := range []string{"http://", "https://", "file://", "data:image/"} {
		if strings.HasPrefix(lower, prefix) {
			return template.URL(src), true
		}
	}
	return "", false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}
