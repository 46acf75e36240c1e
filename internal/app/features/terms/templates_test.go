// internal/app/features/terms/templates_test.go
package terms

import (
	"html/template"
	"testing"
)

func TestEmbeddedTemplatesParse(t *testing.T) {
	if _, err := template.ParseFS(FS, "templates/*.gohtml"); err != nil {
		t.Fatalf("templates failed to parse: %v", err)
	}
}
