package srcview

import (
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Rendering defaults.
const (
	DefaultScriptURL = "/cgi-bin/src.cgi"
	DefaultIconURL   = "/images/icons/"

	minNameWidth = 15
	dateWidth    = len(time.ANSIC)
)

// RenderOptions configures the HTML listing page.
type RenderOptions struct {
	// Title prefixes the page title.
	Title string

	// ScriptURL is the target of sort links. Defaults to DefaultScriptURL.
	ScriptURL string

	// IconURL is the directory holding folder.png, image.png, c.png,
	// text.png and blank.png. Defaults to DefaultIconURL.
	IconURL string

	// Location is used to print modification times. Defaults to time.Local.
	Location *time.Location

	// RelativeLinks makes entry links relative to the current page when the
	// listing uses the default order, which suits path-style URLs.
	RelativeLinks bool
}

// FormatSize renders n bytes as a raw count below 1024, whole kibibytes
// with a "k" suffix below 1024*1024, and whole mebibytes with an "M"
// suffix otherwise. Zero renders as "-".
func FormatSize(n int64) string {
	switch {
	case n == 0:
		return "-"
	case n < 1024:
		return strconv.FormatInt(n, 10)
	case n < 1024*1024:
		return strconv.FormatInt(n/1024, 10) + "k"
	default:
		return strconv.FormatInt(n/(1024*1024), 10) + "M"
	}
}

// sizeColumn right-aligns FormatSize output so unit suffixes line up.
func sizeColumn(n int64) string {
	s := FormatSize(n)
	if last := s[len(s)-1]; last != 'k' && last != 'M' {
		s += " "
	}
	return pad(5-len(s)) + s
}

// iconFor picks the icon file for a path.
func iconFor(p string) string {
	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(p, "/"):
		return "folder.png"
	case hasAnySuffix(lower, ".png", ".gif", ".jpg"):
		return "image.png"
	case hasAnySuffix(lower, ".c", ".h"):
		return "c.png"
	default:
		return "text.png"
	}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func pad(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// sortLink builds "{script}?by={key}&get={term}".
func sortLink(script string, key SortKey, term string) string {
	q := url.Values{}
	q.Set("by", string(key))
	q.Set("get", term)
	return script + "?" + q.Encode()
}

type pageHeader struct {
	NameBold  bool
	NamePad   string
	TimeBold  bool
	TimeHref  string
	TimeLabel string
	TimePad   string
	SizeBold  bool
	SizeHref  string
}

type pageRow struct {
	Icon  string
	Href  string
	Short string
	Pad   string
	Date  string
	Size  string
}

type page struct {
	Title   string
	Term    string
	IconURL string
	Head    pageHeader
	Rows    []pageRow
}

var listingTemplate = template.Must(template.New("listing").Parse(`<html>
<head><title>{{.Title}}: {{.Term}}</title></head>
<body bgcolor="white">
<h1>{{.Term}}</h1>
<pre>
 <img src="{{.IconURL}}blank.png" width="20" height="22"> {{if .Head.NameBold}}<b>{{end}}<a href="">Name</a>{{if .Head.NameBold}}</b>{{end}}{{.Head.NamePad}}    {{if .Head.TimeBold}}<b>{{end}}<a href="{{.Head.TimeHref}}">{{.Head.TimeLabel}}</a>{{if .Head.TimeBold}}</b>{{end}}{{.Head.TimePad}}     {{if .Head.SizeBold}}<b>{{end}}<a href="{{.Head.SizeHref}}">Size</a>{{if .Head.SizeBold}}</b>{{end}}
<hr noshade size="1">
{{range .Rows}} <img src="{{$.IconURL}}{{.Icon}}" width="20" height="22"> <a href="{{.Href}}">{{.Short}}</a>{{.Pad}}    {{.Date}}     {{.Size}}
{{end}}<hr noshade size="1">
</pre>
</body>
</html>
`))

// Render writes l as an HTML page.
//
// The name column is as wide as the longest child name, but at least 15
// characters. The time and size headers link to the opposite direction of
// the current order for the same term.
func Render(w io.Writer, l *Listing, opts RenderOptions) error {
	return listingTemplate.Execute(w, buildPage(l, opts))
}

func buildPage(l *Listing, opts RenderOptions) page {
	script := opts.ScriptURL
	if script == "" {
		script = DefaultScriptURL
	}
	icons := opts.IconURL
	if icons == "" {
		icons = DefaultIconURL
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	by, _ := ParseSortKey(string(l.By))

	width := minNameWidth
	for _, c := range l.Children {
		width = max(width, utf8.RuneCountInString(c.Short))
	}

	p := page{
		Title:   opts.Title,
		Term:    l.Term,
		IconURL: icons,
		Head:    buildHeader(script, l.Term, by, width),
		Rows:    make([]pageRow, 0, len(l.Children)),
	}
	for _, c := range l.Children {
		href := c.Short
		if by != SortName || !opts.RelativeLinks {
			href = sortLink(script, by, c.Path)
		}
		p.Rows = append(p.Rows, pageRow{
			Icon:  iconFor(c.Path),
			Href:  href,
			Short: c.Short,
			Pad:   pad(width - utf8.RuneCountInString(c.Short)),
			Date:  c.ModTime.In(loc).Format(time.ANSIC),
			Size:  sizeColumn(c.Size),
		})
	}
	return p
}

func buildHeader(script, term string, by SortKey, width int) pageHeader {
	h := pageHeader{
		NameBold:  by == SortName,
		NamePad:   pad(width - len("Name")),
		TimeLabel: "Last Modification",
		TimeHref:  sortLink(script, SortNewest, term),
		SizeHref:  sortLink(script, SortLargest, term),
	}
	switch by {
	case SortOldest:
		h.TimeBold = true
		h.TimeLabel = "Oldest Modification"
		h.TimeHref = sortLink(script, SortNewest, term)
	case SortNewest:
		h.TimeBold = true
		h.TimeLabel = "Newest Modification"
		h.TimeHref = sortLink(script, SortOldest, term)
	case SortSmallest:
		h.SizeBold = true
	case SortLargest:
		h.SizeBold = true
		h.SizeHref = sortLink(script, SortSmallest, term)
	}
	h.TimePad = pad(dateWidth - len(h.TimeLabel))
	return h
}
