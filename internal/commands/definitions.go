package commands

import "github.com/bwmarrin/discordgo"

// GetCommands returns the slash commands registered in every guild.
func GetCommands() []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(intents))
	for _, info := range intents {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:         string(info.Intent),
			Description:  info.Description,
			DMPermission: boolPtr(true),
		})
	}
	return cmds
}

func boolPtr(b bool) *bool {
	return &b
}
