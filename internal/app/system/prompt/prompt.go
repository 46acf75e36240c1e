// Package prompt assembles the system message handed to the completion
// API: the service-wide prompt, then the tenant's context, then the
// user's own context, in that fixed order.
package prompt

import (
	"fmt"
	"strings"
)

// DefaultSystem is used when no service-wide prompt is configured.
const DefaultSystem = "- You are QChat, a helpful AI Assistant developed to assist Queensland government employees in their day-to-day tasks. " +
	"- You will provide clear and concise queries, and you will respond with polite and professional answers. " +
	"- You will answer questions truthfully and accurately. " +
	"- You will respond to questions in accordance with rules of Queensland government."

// UnescapeSystem decodes the caret escaping used to fit multi-line
// prompts into a single environment variable: a bare ^ becomes a space,
// and the sequence ^\' becomes ^'.
func UnescapeSystem(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] != '^' {
			b.WriteByte(raw[i])
			continue
		}
		if i+2 < len(raw) && raw[i+1] == '\\' && raw[i+2] == '\'' {
			b.WriteString("^'")
			i += 2
			continue
		}
		b.WriteByte(' ')
	}
	return b.String()
}

// Parts are the three context layers of a chat turn's system message.
type Parts struct {
	System string
	Tenant string
	User   string
}

// Assemble joins the non-empty layers with blank lines. An empty System
// falls back to DefaultSystem; tenant and user context are optional.
func Assemble(p Parts) string {
	system := strings.TrimSpace(p.System)
	if system == "" {
		system = DefaultSystem
	}

	sections := []string{system}
	if tenant := strings.TrimSpace(p.Tenant); tenant != "" {
		sections = append(sections, tenant)
	}
	if user := strings.TrimSpace(p.User); user != "" {
		sections = append(sections, user)
	}
	return strings.Join(sections, "\n\n")
}

// DocumentChunk is one retrieved passage for a document-grounded turn.
type DocumentChunk struct {
	ID       string
	FileName string
	Order    int
	Content  string
}

const documentInstructions = "- Given the following extracted parts of a document, create a final answer.\n" +
	"- If the answer is not apparent from the retrieved documents you can respond but let the user know your answer is not based on the documents.\n" +
	"- You must always include a citation at the end of your answer and don't include full stop.\n" +
	"- Use the format for your citation {% citation items=[{name:\"filename 1\", id:\"file id\", order:\"1\"}, {name:\"filename 2\", id:\"file id\", order:\"2\"}] /%}\n" +
	"----------------\n" +
	"context:"

// AssembleDocument builds the system message for a document-grounded
// turn from the retrieved chunks. Newlines inside chunk content are
// flattened so each passage stays one block.
func AssembleDocument(chunks []DocumentChunk) string {
	var b strings.Builder
	b.WriteString(documentInstructions)
	b.WriteString("\n")
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n------\n")
		}
		content := strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(c.Content)
		fmt.Fprintf(&b, "[%d]. file name: %s \n file id: %s \n order: %d \n %s", i, c.FileName, c.ID, c.Order, content)
	}
	return b.String()
}
