package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averill/parlor/store"
)

func TestBuildCompletionContextPlainMessages(t *testing.T) {
	messages := []store.Message{
		{Role: store.RoleUser, Content: "q1"},
		{Role: store.RoleAssistant, Content: "a1"},
		{Role: store.RoleUser, Content: "q2"},
	}

	result := buildCompletionContext(messages)
	require.Len(t, result, 3)
	assert.Equal(t, "q1", result[0].Content)
	assert.Equal(t, "assistant", result[1].Role)
	assert.Equal(t, "q2"+modificationNote, result[2].Content)
}

func TestBuildCompletionContextAttachmentNamesOnEveryMessage(t *testing.T) {
	attachments := []store.Attachment{
		{OriginalName: "main.go", ExtractedText: "package main"},
		{OriginalName: "logo.png"},
	}
	messages := []store.Message{
		{Role: store.RoleUser, Content: "look at these", Attachments: attachments},
		{Role: store.RoleAssistant, Content: "ok"},
		{Role: store.RoleUser, Content: "and now?"},
	}

	result := buildCompletionContext(messages)
	require.Len(t, result, 3)

	// Earlier messages carry the names but never the contents.
	assert.Contains(t, result[0].Content, "[Attachments: main.go, logo.png]")
	assert.NotContains(t, result[0].Content, "package main")
	assert.NotContains(t, result[0].Content, modificationNote)
}

func TestBuildCompletionContextExtractsLastMessageFiles(t *testing.T) {
	messages := []store.Message{
		{Role: store.RoleUser, Content: "review this", Attachments: []store.Attachment{
			{OriginalName: "main.go", ExtractedText: "package main"},
			{OriginalName: "logo.png"},
		}},
	}

	result := buildCompletionContext(messages)
	require.Len(t, result, 1)
	assert.Contains(t, result[0].Content, "[Attachments: main.go, logo.png]")
	assert.Contains(t, result[0].Content, "The following are the contents of the attached files:")
	assert.Contains(t, result[0].Content, "File: main.go\n```\npackage main\n```")
	assert.Contains(t, result[0].Content, "File: logo.png (non-text file)")
	assert.Contains(t, result[0].Content, modificationNote)
}

func TestBuildCompletionContextEmpty(t *testing.T) {
	assert.Empty(t, buildCompletionContext(nil))
}
