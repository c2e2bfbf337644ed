package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/bizbot/internal/action"
	"github.com/susu3304/bizbot/internal/commands"
	"github.com/susu3304/bizbot/internal/conversation"
	"github.com/susu3304/bizbot/internal/wizard"
)

var actor = wizard.Actor{ID: "1", Name: "n", ChannelID: "c"}

func TestDecodeMessage(t *testing.T) {
	ev := decodeMessage(actor, "  !report ")
	assert.Equal(t, conversation.KindCommand, ev.Kind)
	assert.Equal(t, commands.Report, ev.Intent)
	assert.NotEmpty(t, ev.ID)

	ev = decodeMessage(actor, "!unknown thing")
	assert.Equal(t, conversation.KindText, ev.Kind)
	assert.Equal(t, "!unknown thing", ev.Text)

	ev = decodeMessage(actor, "18:00")
	assert.Equal(t, conversation.KindText, ev.Kind)
}

func TestDecodeComponent(t *testing.T) {
	ev, err := decodeComponent(actor, "menu:deals")
	require.NoError(t, err)
	assert.Equal(t, conversation.KindButton, ev.Kind)
	assert.Equal(t, commands.Deals, ev.Intent)

	ev, err = decodeComponent(actor, "deal_set:4:closed")
	require.NoError(t, err)
	assert.Equal(t, conversation.KindAction, ev.Kind)
	assert.Equal(t, action.WithValue(action.DealSet, 4, "closed"), ev.Token)

	_, err = decodeComponent(actor, "garbage")
	assert.ErrorIs(t, err, action.ErrMalformedToken)
}
