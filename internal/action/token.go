// Package action encodes the opaque button payloads that point at a stored
// entity. The wire form is "kind:id" or "kind:id:value".
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedToken = errors.New("malformed action token")

type Kind string

const (
	TaskToggle Kind = "task_toggle"
	TaskDelete Kind = "task_delete"
	DealMenu   Kind = "deal_menu"
	DealSet    Kind = "deal_set"
	DealDelete Kind = "deal_delete"
	// DealPick answers the status step of the deal wizard. It carries no id.
	DealPick Kind = "deal_pick"
)

var kinds = map[Kind]bool{
	TaskToggle: true,
	TaskDelete: true,
	DealMenu:   true,
	DealSet:    true,
	DealDelete: true,
	DealPick:   true,
}

// maxLen matches Discord's custom_id limit.
const maxLen = 100

type Token struct {
	Kind  Kind
	ID    int64
	Value string
}

// Button is a label plus the token it sends back when pressed.
type Button struct {
	Label string
	Token Token
}

func New(kind Kind, id int64) Token {
	return Token{Kind: kind, ID: id}
}

func WithValue(kind Kind, id int64, value string) Token {
	return Token{Kind: kind, ID: id, Value: value}
}

func (t Token) String() string {
	if t.Value == "" {
		return fmt.Sprintf("%s:%d", t.Kind, t.ID)
	}
	return fmt.Sprintf("%s:%d:%s", t.Kind, t.ID, t.Value)
}

// Parse decodes a token produced by Token.String.
func Parse(s string) (Token, error) {
	if s == "" || len(s) > maxLen {
		return Token{}, ErrMalformedToken
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return Token{}, ErrMalformedToken
	}
	kind := Kind(parts[0])
	if !kinds[kind] {
		return Token{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedToken, parts[0])
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id < 0 {
		return Token{}, fmt.Errorf("%w: bad id %q", ErrMalformedToken, parts[1])
	}
	tok := Token{Kind: kind, ID: id}
	if len(parts) == 3 {
		tok.Value = parts[2]
	}
	if (kind == DealSet || kind == DealPick) && tok.Value == "" {
		return Token{}, fmt.Errorf("%w: %s needs a value", ErrMalformedToken, kind)
	}
	return tok, nil
}
