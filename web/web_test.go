package web

import (
	"html/template"
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedTemplatesExist(t *testing.T) {
	templatesFS := GetTemplatesFS()

	for _, file := range []string{"index.html", "admin/login.html", "admin/index.html"} {
		if _, err := fs.Stat(templatesFS, file); err != nil {
			t.Errorf("required template %q not found: %v", file, err)
		}
	}
}

func TestEmbeddedStaticFilesExist(t *testing.T) {
	staticFS := GetStaticFS()

	for _, file := range []string{"css/carte.css", "js/carte.js", "js/admin.js"} {
		if _, err := fs.Stat(staticFS, file); err != nil {
			t.Errorf("required static file %q not found: %v", file, err)
		}
	}
}

func TestTemplatesParse(t *testing.T) {
	templatesFS := GetTemplatesFS()

	for _, file := range []string{"index.html", "admin/login.html", "admin/index.html"} {
		if _, err := template.ParseFS(templatesFS, file); err != nil {
			t.Errorf("template %q does not parse: %v", file, err)
		}
	}
}

func TestIndexTemplate_HasMapControls(t *testing.T) {
	content, err := fs.ReadFile(GetTemplatesFS(), "index.html")
	if err != nil {
		t.Fatalf("failed to read index.html: %v", err)
	}

	for _, class := range []string{
		"carte-pays__boutons",
		"carte-pays__legende",
		"carte-pays__legende-drapeau",
		"carte-pays__legende-nom",
	} {
		if !strings.Contains(string(content), class) {
			t.Errorf("expected index.html to contain %q", class)
		}
	}
}

func TestCarteScript_SendsEvents(t *testing.T) {
	content, err := fs.ReadFile(GetStaticFS(), "js/carte.js")
	if err != nil {
		t.Fatalf("failed to read carte.js: %v", err)
	}

	for _, event := range []string{"zoom_in", "zoom_out", "zoom_gesture", "mousemove", "mouseover", "mouseleave", "click"} {
		if !strings.Contains(string(content), `"`+event+`"`) {
			t.Errorf("expected carte.js to send %q", event)
		}
	}
}
