// internal/app/features/home/templates_test.go
package home

import (
	"html/template"
	"testing"
)

func TestEmbeddedTemplatesParse(t *testing.T) {
	if _, err := template.ParseFS(FS, "templates/*.gohtml"); err != nil {
		t.Fatalf("templates failed to parse: %v", err)
	}
}
