// Package templates renders the HTML pages of the discovery UI.
package templates

import (
	"embed"
	"html/template"

	"github.com/a-h/templ"
)

//go:embed pages/*.html
var pageFiles embed.FS

var (
	homePage  = mustParsePage("pages/home.html")
	errorPage = mustParsePage("pages/error.html")
)

func mustParsePage(page string) *template.Template {
	return template.Must(template.New("").ParseFS(pageFiles, "pages/layout.html", "pages/card.html", page)).Lookup("layout")
}

// HomePage renders the landing page with the search form and any results.
func HomePage(data HomePageData) templ.Component {
	return templ.FromGoHTML(homePage, data)
}

// ErrorPage renders an error or not-found page.
func ErrorPage(data ErrorPageData) templ.Component {
	return templ.FromGoHTML(errorPage, data)
}
