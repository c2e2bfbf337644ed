package commands

import "strings"

// Intent is what the user asked for, whether typed as a command or pressed
// as a main-menu button.
type Intent string

const (
	Start      Intent = "start"
	AddTask    Intent = "add_task"
	Tasks      Intent = "tasks"
	AddDeal    Intent = "add_deal"
	Deals      Intent = "deals"
	Marketing  Intent = "marketing"
	Motivation Intent = "motivation"
	Report     Intent = "report"
	Cancel     Intent = "cancel"
	Help       Intent = "help"
)

type intentInfo struct {
	Intent      Intent
	Description string
	// MenuLabel is empty for intents that have no main-menu button.
	MenuLabel string
}

var intents = []intentInfo{
	{Start, "Show the main menu", ""},
	{AddTask, "Add a task", "➕ Add task"},
	{Tasks, "Show your tasks", "📋 View tasks"},
	{AddDeal, "Add a deal", "💼 Add deal"},
	{Deals, "Show your deals", "📊 View deals"},
	{Marketing, "Get marketing advice", "💡 Marketing advice"},
	{Motivation, "Get a motivational phrase", "⚡ Motivation"},
	{Report, "Show your report", "🧾 Report"},
	{Cancel, "Cancel the current input", ""},
	{Help, "List the available commands", ""},
}

const menuPrefix = "menu:"

// ParseIntent accepts "report", "/report" and "!report".
func ParseIntent(s string) (Intent, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimLeft(name, "/!")
	if i := strings.IndexAny(name, " \t\n"); i >= 0 {
		name = name[:i]
	}
	for _, info := range intents {
		if string(info.Intent) == name {
			return info.Intent, true
		}
	}
	return "", false
}

// MenuItem is one main-menu button.
type MenuItem struct {
	Label    string
	CustomID string
}

// Menu returns the main-menu buttons in display order.
func Menu() []MenuItem {
	var items []MenuItem
	for _, info := range intents {
		if info.MenuLabel == "" {
			continue
		}
		items = append(items, MenuItem{Label: info.MenuLabel, CustomID: menuPrefix + string(info.Intent)})
	}
	return items
}

// ParseMenuID decodes a main-menu button's custom id.
func ParseMenuID(customID string) (Intent, bool) {
	if !strings.HasPrefix(customID, menuPrefix) {
		return "", false
	}
	return ParseIntent(strings.TrimPrefix(customID, menuPrefix))
}

// HelpText lists every command.
func HelpText() string {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, info := range intents {
		b.WriteString("\n/")
		b.WriteString(string(info.Intent))
		b.WriteString(" - ")
		b.WriteString(info.Description)
	}
	return b.String()
}
