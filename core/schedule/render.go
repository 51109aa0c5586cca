package schedule

import (
	htmltmpl "html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/fs"
)

const (
	templateDir  = "templates/grid"
	templateName = "layout"
)

var (
	templates tmplCache
	tmplErr   error
	tmplInit  sync.Once
)

type tmplCache map[string]interface{} // {ext: *Template}

var funcs = map[string]interface{}{
	"days":  func() []string { return Days },
	"slots": func() []string { return TimeSlots },
	"cell": func(g Grid, day, slot string) Cell {
		c, _ := g.Cell(day, slot)
		return c
	},
}

func parseTemplates(fsys fs.FS) (tmplCache, error) {
	cache := make(tmplCache)
	for _, ext := range []string{".txt", ".gohtml"} {
		base := path.Join(templateDir, "_base"+ext)
		page := path.Join(templateDir, templateName+ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.New(templateName + ext).Funcs(funcs).ParseFS(fsys, base, page)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", page)
			}
			cache[ext] = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.New(templateName + ext).Funcs(funcs).ParseFS(fsys, base, page)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", page)
			}
			cache[ext] = tmpl.Option("missingkey=error")
		}
	}
	return cache, nil
}

func loadTemplates() (tmplCache, error) {
	tmplInit.Do(func() { // only parse once, on first render
		templates, tmplErr = parseTemplates(appfs.FS)
	})
	return templates, tmplErr
}

// RenderHTML writes the layout as an HTML fragment: one table per batch.
func RenderHTML(w io.Writer, l Layout) error {
	cache, err := loadTemplates()
	if err != nil {
		return err
	}
	tmpl, ok := cache[".gohtml"].(*htmltmpl.Template)
	if !ok {
		return errors.New("html grid template not found")
	}
	return errors.Wrap(tmpl.ExecuteTemplate(w, templateName+".gohtml", l), "rendering html grid")
}

// RenderText writes the layout as plain text, day by day.
func RenderText(w io.Writer, l Layout) error {
	cache, err := loadTemplates()
	if err != nil {
		return err
	}
	tmpl, ok := cache[".txt"].(*texttmpl.Template)
	if !ok {
		return errors.New("text grid template not found")
	}
	return errors.Wrap(tmpl.ExecuteTemplate(w, templateName+".txt", l), "rendering text grid")
}

// TextString is RenderText into a string.
func TextString(l Layout) (string, error) {
	var sb strings.Builder
	if err := RenderText(&sb, l); err != nil {
		return "", err
	}
	return sb.String(), nil
}
