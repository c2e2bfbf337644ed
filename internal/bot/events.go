package bot

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/bizbot/internal/action"
	"github.com/susu3304/bizbot/internal/commands"
	"github.com/susu3304/bizbot/internal/conversation"
	"github.com/susu3304/bizbot/internal/wizard"
)

// eventTimeout bounds one event, including a slow advisor call.
const eventTimeout = 45 * time.Second

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("connected", "user", event.User.Username)

	// Register commands for all guilds
	for _, guild := range event.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			b.logger.Error("failed to register commands", "guild", guild.ID, "error", err)
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	b.logger.Info("guild available, ensuring commands", "guild", event.ID, "name", event.Name)
	if err := b.registerGuildCommands(event.ID); err != nil {
		b.logger.Error("failed to register commands", "guild", event.ID, "error", err)
	}
}

func (b *Bot) registerGuildCommands(guildID string) error {
	cmds := commands.GetCommands()
	// Delete existing commands and register new ones
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, cmds)
	if err != nil {
		return err
	}

	b.logger.Info("registered application commands", "guild", guildID)
	return nil
}

// decodeMessage maps message text to an event. "!name" is a command when name
// is a known intent; everything else is free text.
func decodeMessage(actor wizard.Actor, content string) conversation.Event {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "!") && len(content) > 1 {
		if intent, ok := commands.ParseIntent(content); ok {
			return conversation.Command(actor, intent)
		}
	}
	return conversation.Text(actor, content)
}

// decodeComponent maps a button custom id to an event.
func decodeComponent(actor wizard.Actor, customID string) (conversation.Event, error) {
	if intent, ok := commands.ParseMenuID(customID); ok {
		return conversation.Button(actor, intent), nil
	}
	tok, err := action.Parse(customID)
	if err != nil {
		return conversation.Event{}, err
	}
	return conversation.Action(actor, tok), nil
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore bot messages
	if m.Author == nil || m.Author.Bot {
		return
	}
	if strings.TrimSpace(m.Content) == "" {
		return
	}

	actor := wizard.Actor{ID: m.Author.ID, Name: m.Author.Username, ChannelID: m.ChannelID}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	replies := b.router.Handle(ctx, decodeMessage(actor, m.Content))
	for _, r := range replies {
		for _, msg := range render(r) {
			if _, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
				Content:    msg.Content,
				Components: msg.Components,
			}); err != nil {
				b.logger.Error("failed to send message", "channel", m.ChannelID, "error", err)
			}
		}
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil || user.Bot {
		return
	}
	actor := wizard.Actor{ID: user.ID, Name: user.Username, ChannelID: i.ChannelID}

	var ev conversation.Event
	var ack discordgo.InteractionResponseType
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		intent, ok := commands.ParseIntent(i.ApplicationCommandData().Name)
		if !ok {
			return
		}
		ev = conversation.Command(actor, intent)
		ack = discordgo.InteractionResponseDeferredChannelMessageWithSource
	case discordgo.InteractionMessageComponent:
		var err error
		ev, err = decodeComponent(actor, i.MessageComponentData().CustomID)
		if err != nil {
			b.logger.Warn("rejected component", "custom_id", i.MessageComponentData().CustomID, "error", err)
			b.respondEphemeral(s, i, "That button is no longer valid.")
			return
		}
		ack = discordgo.InteractionResponseDeferredMessageUpdate
	default:
		return
	}

	// Acknowledge within Discord's deadline; replies follow as followups.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{Type: ack}); err != nil {
		b.logger.Error("failed to acknowledge interaction", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	for _, r := range b.router.Handle(ctx, ev) {
		for _, msg := range render(r) {
			params := &discordgo.WebhookParams{
				Content:    msg.Content,
				Components: msg.Components,
			}
			if msg.Ephemeral {
				params.Flags = discordgo.MessageFlagsEphemeral
			}
			if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
				b.logger.Error("failed to send followup", "channel", i.ChannelID, "error", err)
			}
		}
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("failed to respond", "error", err)
	}
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
