package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/bizbot/internal/action"
	"github.com/susu3304/bizbot/internal/commands"
	"github.com/susu3304/bizbot/internal/conversation"
	"github.com/susu3304/bizbot/internal/listing"
)

// Discord allows 5 action rows per message and 5 buttons per row.
const (
	maxRows          = 5
	maxButtonsPerRow = 5
	entriesPerChunk  = 5
)

type outMessage struct {
	Content    string
	Components []discordgo.MessageComponent
	Ephemeral  bool
}

// render turns one reply into the Discord messages that carry it. Lists are
// split so that every entity gets its own row of buttons.
func render(r conversation.Reply) []outMessage {
	if r.List != nil && !r.List.Empty() {
		return renderList(*r.List)
	}

	msg := outMessage{Content: r.Text, Ephemeral: r.Ephemeral}
	msg.Components = append(msg.Components, buttonRows(r.Buttons)...)
	if r.Menu {
		msg.Components = append(msg.Components, menuRows()...)
	}
	if len(msg.Components) > maxRows {
		msg.Components = msg.Components[:maxRows]
	}
	return []outMessage{msg}
}

func renderList(view listing.View) []outMessage {
	var out []outMessage
	for start := 0; start < len(view.Entries); start += entriesPerChunk {
		end := start + entriesPerChunk
		if end > len(view.Entries) {
			end = len(view.Entries)
		}
		msg := outMessage{}
		if start == 0 {
			msg.Content = view.Text
		}
		for _, e := range view.Entries[start:end] {
			if msg.Content != "" {
				msg.Content += "\n"
			}
			msg.Content += e.Text
			msg.Components = append(msg.Components, row(e.Buttons))
		}
		out = append(out, msg)
	}
	return out
}

func buttonRows(buttons []action.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += maxButtonsPerRow {
		end := start + maxButtonsPerRow
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, row(buttons[start:end]))
	}
	return rows
}

func row(buttons []action.Button) discordgo.ActionsRow {
	r := discordgo.ActionsRow{}
	for _, b := range buttons {
		style := discordgo.SecondaryButton
		switch b.Token.Kind {
		case action.TaskDelete, action.DealDelete:
			style = discordgo.DangerButton
		case action.DealPick, action.DealSet:
			style = discordgo.PrimaryButton
		}
		r.Components = append(r.Components, discordgo.Button{
			Label:    b.Label,
			Style:    style,
			CustomID: b.Token.String(),
		})
	}
	return r
}

func menuRows() []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	items := commands.Menu()
	// Two buttons per row, like a reply keyboard.
	for start := 0; start < len(items); start += 2 {
		end := start + 2
		if end > len(items) {
			end = len(items)
		}
		r := discordgo.ActionsRow{}
		for _, item := range items[start:end] {
			r.Components = append(r.Components, discordgo.Button{
				Label:    item.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: item.CustomID,
			})
		}
		rows = append(rows, r)
	}
	return rows
}
