// Package conversation turns decoded chat events into replies. Each event is
// one of four kinds and is routed by kind plus the sender's wizard state.
package conversation

import (
	"github.com/google/uuid"

	"github.com/susu3304/bizbot/internal/action"
	"github.com/susu3304/bizbot/internal/commands"
	"github.com/susu3304/bizbot/internal/listing"
	"github.com/susu3304/bizbot/internal/wizard"
)

type Kind int

const (
	// KindCommand is a slash command or "!name" text.
	KindCommand Kind = iota
	// KindButton is a main-menu button press.
	KindButton
	// KindAction is a pressed button carrying an action token.
	KindAction
	// KindText is any other message text.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindAction:
		return "action"
	case KindText:
		return "free_text"
	default:
		return "unknown"
	}
}

type Event struct {
	ID    string
	Kind  Kind
	Actor wizard.Actor

	Intent commands.Intent
	Token  action.Token
	Text   string
}

func Command(actor wizard.Actor, intent commands.Intent) Event {
	return Event{ID: uuid.NewString(), Kind: KindCommand, Actor: actor, Intent: intent}
}

func Button(actor wizard.Actor, intent commands.Intent) Event {
	return Event{ID: uuid.NewString(), Kind: KindButton, Actor: actor, Intent: intent}
}

func Action(actor wizard.Actor, tok action.Token) Event {
	return Event{ID: uuid.NewString(), Kind: KindAction, Actor: actor, Token: tok}
}

func Text(actor wizard.Actor, text string) Event {
	return Event{ID: uuid.NewString(), Kind: KindText, Actor: actor, Text: text}
}

// Reply is one outbound message.
type Reply struct {
	Text    string
	Buttons []action.Button
	// Menu attaches the main-menu buttons.
	Menu bool
	// Ephemeral replies are shown only to the user who triggered them.
	Ephemeral bool
	List      *listing.View
}
