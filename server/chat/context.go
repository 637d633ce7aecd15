package chat

import (
	"fmt"
	"strings"

	"github.com/averill/parlor/ai"
	"github.com/averill/parlor/store"
)

// modificationNote is appended to the final context message of every
// completion request so the model never claims to have edited uploads.
const modificationNote = "\n\n**Note:** I cannot directly modify uploaded project files. " +
	"I can only analyze the structure and content provided and suggest changes " +
	"or provide modified code snippets based on your requests."

// buildCompletionContext maps the transcript to completion-request form.
// Every message with attachments carries their names inline; only the last
// message (the turn being answered) additionally carries the extracted file
// contents and the modification note.
func buildCompletionContext(messages []store.Message) []ai.Message {
	result := make([]ai.Message, len(messages))
	for i, m := range messages {
		content := m.Content
		if len(m.Attachments) > 0 {
			content += fmt.Sprintf(" [Attachments: %s]", joinOriginalNames(m.Attachments))
		}
		result[i] = ai.Message{Role: string(m.Role), Content: content}
	}

	if len(result) > 0 {
		last := len(result) - 1
		if extracted := extractedContents(messages[last].Attachments); extracted != "" {
			result[last].Content += "\n\nThe following are the contents of the attached files:\n" + extracted
		}
		result[last].Content += modificationNote
	}

	return result
}

func joinOriginalNames(attachments []store.Attachment) string {
	names := make([]string, len(attachments))
	for i, a := range attachments {
		names[i] = a.OriginalName
	}
	return strings.Join(names, ", ")
}

func extractedContents(attachments []store.Attachment) string {
	var b strings.Builder
	for _, a := range attachments {
		if a.ExtractedText == "" {
			fmt.Fprintf(&b, "\n\nFile: %s (non-text file)", a.OriginalName)
			continue
		}
		fmt.Fprintf(&b, "\n\nFile: %s\n```\n%s\n```", a.OriginalName, a.ExtractedText)
	}
	return b.String()
}
