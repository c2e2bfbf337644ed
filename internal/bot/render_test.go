package bot

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/bizbot/internal/action"
	"github.com/susu3304/bizbot/internal/conversation"
	"github.com/susu3304/bizbot/internal/listing"
)

func TestRenderPlainReplyWithMenu(t *testing.T) {
	msgs := render(conversation.Reply{Text: "hello", Menu: true})
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	// 7 menu items, two per row.
	assert.Len(t, msgs[0].Components, 4)
	first := msgs[0].Components[0].(discordgo.ActionsRow)
	assert.Equal(t, "menu:add_task", first.Components[0].(discordgo.Button).CustomID)
}

func TestRenderChoices(t *testing.T) {
	msgs := render(conversation.Reply{
		Text:      "Choose:",
		Ephemeral: true,
		Buttons: []action.Button{
			{Label: "Open", Token: action.WithValue(action.DealPick, 0, "open")},
			{Label: "Closed", Token: action.WithValue(action.DealPick, 0, "closed")},
		},
	})
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Ephemeral)
	require.Len(t, msgs[0].Components, 1)
	r := msgs[0].Components[0].(discordgo.ActionsRow)
	require.Len(t, r.Components, 2)
	assert.Equal(t, "deal_pick:0:closed", r.Components[1].(discordgo.Button).CustomID)
}

func TestRenderListChunks(t *testing.T) {
	view := listing.View{Kind: listing.Tasks, Text: "Your tasks:"}
	for i := 1; i <= 7; i++ {
		view.Entries = append(view.Entries, listing.Entry{
			ID:   int64(i),
			Text: fmt.Sprintf("task %d", i),
			Buttons: []action.Button{
				{Label: "Done", Token: action.New(action.TaskToggle, int64(i))},
				{Label: "Delete", Token: action.New(action.TaskDelete, int64(i))},
			},
		})
	}

	msgs := render(conversation.Reply{Text: view.Text, List: &view})
	require.Len(t, msgs, 2)
	assert.Len(t, msgs[0].Components, 5)
	assert.Len(t, msgs[1].Components, 2)
	assert.Contains(t, msgs[0].Content, "Your tasks:")
	assert.Contains(t, msgs[1].Content, "task 6")
	assert.NotContains(t, msgs[1].Content, "Your tasks:")

	del := msgs[1].Components[1].(discordgo.ActionsRow).Components[1].(discordgo.Button)
	assert.Equal(t, "task_delete:7", del.CustomID)
	assert.Equal(t, discordgo.DangerButton, del.Style)
}

func TestRenderCapsRows(t *testing.T) {
	var buttons []action.Button
	for i := 0; i < 30; i++ {
		buttons = append(buttons, action.Button{Label: "x", Token: action.New(action.TaskToggle, int64(i))})
	}
	msgs := render(conversation.Reply{Text: "many", Buttons: buttons, Menu: true})
	assert.Len(t, msgs[0].Components, maxRows)
}
