package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		prefix, content, want string
	}{
		{"^", "^help", "help"},
		{"^", "^help me please", "help"},
		{"^", "^", "?"},
		{"^", "^ help", "?"},
		{"^", "hello", ""},
		{"", "^help", ""},
		{"!!", "!!help", "help"},
		{"!!", "!help", ""},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, command(tt.prefix, tt.content))
		})
	}
}

func TestHelpEmbedListsCommands(t *testing.T) {
	embed := helpEmbed("https://cdn.example/avatar.png", 0x7B68EE)

	assert.Equal(t, "Nocturne Help", embed.Title)
	assert.Equal(t, 0x7B68EE, embed.Color)
	assert.Contains(t, embed.Description, "/play <query>")
	assert.Contains(t, embed.Description, "/seek <timestamp>")
}
