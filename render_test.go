package srcview

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "-"},
		{in: 1, want: "1"},
		{in: 512, want: "512"},
		{in: 1023, want: "1023"},
		{in: 1024, want: "1k"},
		{in: 2000, want: "1k"},
		{in: 2048, want: "2k"},
		{in: 1048575, want: "1023k"},
		{in: 1048576, want: "1M"},
		{in: 5 << 20, want: "5M"},
		{in: 5 << 30, want: "5120M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.in), "FormatSize(%d)", tt.in)
	}
}

func TestSizeColumn(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "   - ", sizeColumn(0))
	assert.Equal(t, "   3 ", sizeColumn(3))
	assert.Equal(t, "1023 ", sizeColumn(1023))
	assert.Equal(t, "   1k", sizeColumn(1024))
	assert.Equal(t, "1023k", sizeColumn(1048575))
	assert.Equal(t, "   1M", sizeColumn(1048576))
}

func TestIconFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"proj/src/":      "folder.png",
		"proj/logo.PNG":  "image.png",
		"proj/anim.gif":  "image.png",
		"proj/photo.jpg": "image.png",
		"proj/menu.c":    "c.png",
		"proj/menu.h":    "c.png",
		"proj/Makefile":  "text.png",
		"proj/page.html": "text.png",
	}
	for path, want := range tests {
		assert.Equal(t, want, iconFor(path), "iconFor(%q)", path)
	}
}

func testListing(by SortKey) *Listing {
	base := time.Unix(1_000_000_000, 0)
	return &Listing{
		Base: "proj/",
		Term: "proj/src/",
		By:   by,
		Children: []Child{
			{Entry: Entry{Path: "proj/src/a.c", ModTime: base.Add(50 * time.Second), Size: 2000}, Short: "a.c"},
			{Entry: Entry{Path: "proj/src/gui/", ModTime: base, Size: 0}, Short: "gui/"},
		},
	}
}

func renderString(t *testing.T, l *Listing, opts RenderOptions) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, l, opts))
	return buf.String()
}

func TestRenderByName(t *testing.T) {
	t.Parallel()

	out := renderString(t, testListing(SortName), RenderOptions{
		Title:         "Project",
		ScriptURL:     "/cgi",
		IconURL:       "/icons/",
		Location:      time.UTC,
		RelativeLinks: true,
	})

	assert.Contains(t, out, "<title>Project: proj/src/</title>")
	assert.Contains(t, out, "<h1>proj/src/</h1>")
	assert.Contains(t, out, `<b><a href="">Name</a></b>`)
	assert.Contains(t, out, `<a href="/cgi?by=newest&amp;get=proj%2Fsrc%2F">Last Modification</a>`)
	assert.Contains(t, out, `<a href="/cgi?by=largest&amp;get=proj%2Fsrc%2F">Size</a>`)

	row := ` <img src="/icons/c.png" width="20" height="22"> <a href="a.c">a.c</a>` +
		strings.Repeat(" ", 12) + "    " + "Sun Sep  9 01:47:30 2001" + "     " + "   1k\n"
	assert.Contains(t, out, row)

	row = ` <img src="/icons/folder.png" width="20" height="22"> <a href="gui/">gui/</a>` +
		strings.Repeat(" ", 11) + "    " + "Sun Sep  9 01:46:40 2001" + "     " + "   - \n"
	assert.Contains(t, out, row)

	assert.Equal(t, 2, strings.Count(out, `<hr noshade size="1">`))
}

func TestRenderHeaderToggles(t *testing.T) {
	t.Parallel()

	opts := RenderOptions{ScriptURL: "/cgi", Location: time.UTC}
	term := "get=proj%2Fsrc%2F"

	tests := []struct {
		by   SortKey
		want []string
	}{
		{by: SortOldest, want: []string{
			`<b><a href="/cgi?by=newest&amp;` + term + `">Oldest Modification</a></b>`,
			`<a href="/cgi?by=largest&amp;` + term + `">Size</a>`,
		}},
		{by: SortNewest, want: []string{
			`<b><a href="/cgi?by=oldest&amp;` + term + `">Newest Modification</a></b>`,
			`<a href="/cgi?by=largest&amp;` + term + `">Size</a>`,
		}},
		{by: SortSmallest, want: []string{
			`<a href="/cgi?by=newest&amp;` + term + `">Last Modification</a>`,
			`<b><a href="/cgi?by=largest&amp;` + term + `">Size</a></b>`,
		}},
		{by: SortLargest, want: []string{
			`<a href="/cgi?by=newest&amp;` + term + `">Last Modification</a>`,
			`<b><a href="/cgi?by=smallest&amp;` + term + `">Size</a></b>`,
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			t.Parallel()
			out := renderString(t, testListing(tt.by), opts)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
			assert.NotContains(t, out, `<b><a href="">Name</a></b>`)
			// Entry links keep the active order.
			assert.Contains(t, out, `<a href="/cgi?by=`+string(tt.by)+`&amp;get=proj%2Fsrc%2Fa.c">a.c</a>`)
		})
	}
}

func TestRenderAbsoluteLinksByDefault(t *testing.T) {
	t.Parallel()

	out := renderString(t, testListing(SortName), RenderOptions{Location: time.UTC})
	assert.Contains(t, out, `<a href="/cgi-bin/src.cgi?by=name&amp;get=proj%2Fsrc%2Fgui%2F">gui/</a>`)
	assert.Contains(t, out, `src="/images/icons/blank.png"`)
}

func TestRenderWideNames(t *testing.T) {
	t.Parallel()

	l := testListing(SortName)
	l.Children[0].Short = "a-very-long-file-name.c"
	l.Children[0].Path = "proj/src/a-very-long-file-name.c"
	out := renderString(t, l, RenderOptions{Location: time.UTC, RelativeLinks: true})

	// The longest name sets the column; it gets no padding.
	assert.Contains(t, out, `a-very-long-file-name.c</a>    Sun Sep  9 01:47:30 2001`)
	assert.Contains(t, out, `gui/</a>`+strings.Repeat(" ", 23-4)+"    Sun Sep  9 01:46:40 2001")
	assert.Contains(t, out, `<a href="">Name</a></b>`+strings.Repeat(" ", 23-4)+"    ")
}

func TestRenderEscapes(t *testing.T) {
	t.Parallel()

	l := &Listing{
		Term: "proj/<x>/",
		Children: []Child{
			{Entry: Entry{Path: "proj/<x>/<b>.txt", ModTime: time.Unix(0, 0)}, Short: "<b>.txt"},
		},
	}
	out := renderString(t, l, RenderOptions{Location: time.UTC, RelativeLinks: true})
	assert.NotContains(t, out, "<b>.txt")
	assert.Contains(t, out, "&lt;b&gt;.txt")
	assert.Contains(t, out, "<h1>proj/&lt;x&gt;/</h1>")
}

func TestRenderEmptyListing(t *testing.T) {
	t.Parallel()

	out := renderString(t, &Listing{}, RenderOptions{})
	assert.Contains(t, out, "<pre>")
	assert.NotContains(t, out, "folder.png")
}
