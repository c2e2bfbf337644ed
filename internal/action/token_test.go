package action

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	assert.Equal(t, "task_toggle:12", New(TaskToggle, 12).String())
	assert.Equal(t, "deal_set:7:closed", WithValue(DealSet, 7, "closed").String())
}

func TestParse(t *testing.T) {
	tok, err := Parse("deal_set:7:in_progress")
	require.NoError(t, err)
	assert.Equal(t, Token{Kind: DealSet, ID: 7, Value: "in_progress"}, tok)

	tok, err = Parse("task_delete:3")
	require.NoError(t, err)
	assert.Equal(t, New(TaskDelete, 3), tok)
}

func TestParseRejects(t *testing.T) {
	cases := []string{
		"",
		"task_toggle",
		"task_toggle:",
		"task_toggle:abc",
		"task_toggle:-1",
		"nope:1",
		"deal_set:1",
		"deal_pick:0",
		"task_toggle:1" + strings.Repeat("x", 100),
	}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			_, err := Parse(c)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}
