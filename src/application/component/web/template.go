package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"path"
	"sync"

	"github.com/direnv/direnv/v2/sri"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/input-output-hk/boxoffice/src/application"
	"github.com/input-output-hk/boxoffice/src/domain"
)

//go:embed templates
var templatesFs embed.FS

//go:embed static
var staticFs embed.FS

var layout *template.Template
var templates = map[string]*template.Template{}
var templatesMutex sync.Mutex

func init() {
	tmpl, err := templatesFs.ReadFile("templates/layout.html")
	if err != nil {
		log.Panic(err)
	}
	layout = template.Must(template.New("layout.html").Funcs(templateFuncs).Parse(string(tmpl)))
}

func loadTemplate(route string) (*template.Template, error) {
	templatesMutex.Lock()
	defer templatesMutex.Unlock()

	if found, ok := templates[route]; ok {
		return found, nil
	}

	clone := template.Must(layout.Clone())
	source, err := templatesFs.ReadFile(path.Join("templates", route))
	if err != nil {
		return nil, err
	}

	parsed, err := clone.New(route).Parse(string(source))
	if err != nil {
		return nil, err
	}
	templates[route] = parsed

	return parsed, nil
}

func render(route string, w http.ResponseWriter, data any) error {
	tmpl, err := loadTemplate(route)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.Execute(w, data)
}

var integrities = map[string]string{}
var integritiesMutex sync.Mutex

// Subresource integrity of an embedded static file, like "sha256-…".
func integrity(name string) (string, error) {
	integritiesMutex.Lock()
	defer integritiesMutex.Unlock()

	if found, ok := integrities[name]; ok {
		return found, nil
	}

	content, err := fs.ReadFile(staticFs, path.Join("static", name))
	if err != nil {
		return "", err
	}

	hash := sri.NewWriter(io.Discard, sri.SHA256)
	if _, err := hash.Write(content); err != nil {
		return "", err
	}
	integrities[name] = hash.Sum()

	return integrities[name], nil
}

var templateFuncs = template.FuncMap{
	"buildInfo": func() domain.BuildInfo {
		return domain.Build
	},
	"toJson": func(o any, pretty bool) string {
		var enc []byte
		if pretty {
			enc, _ = json.MarshalIndent(o, "", "\t")
		} else {
			enc, _ = json.Marshal(o)
		}
		return string(enc)
	},
	"pathEscape":   url.PathEscape,
	"integrity":    integrity,
	"formatAmount": formatAmount,
}

func formatAmount(amount decimal.Decimal, unit currency.Unit) string {
	return application.FormatAmount(amount, unit)
}
