package bot

import (
	"fmt"
	"log"

	"vnbot/pkg/vndb"

	"github.com/bwmarrin/discordgo"
)

const (
	embedColor = 0x2D2D2D

	// Shown instead of the cover art when the API flags it NSFW.
	nsfwPlaceholder = "https://i.imgur.com/p8HQTjm.png"
)

func (h *Handler) say(s Session, channelID, content string) {
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (h *Handler) postEmbed(s Session, channelID string, e *discordgo.MessageEmbed) {
	if e.Color == 0 {
		e.Color = embedColor
	}
	if _, err := s.ChannelMessageSendEmbed(channelID, e); err != nil {
		log.Printf("Error sending embed: %v", err)
	}
}

func newEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description}
}

// gameEmbed renders a VN record. An empty footer falls back to the
// release date.
func gameEmbed(v *vndb.VN, description, footer string) *discordgo.MessageEmbed {
	title := v.Title
	if v.Original != "" {
		title = fmt.Sprintf("%s (%s)", v.Title, v.Original)
	}
	if footer == "" {
		footer = "Release date: " + v.Released
	}

	e := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		URL:         fmt.Sprintf("https://vndb.org/v%d", v.ID),
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}

	thumb := v.Image
	if v.ImageNSFW {
		thumb = nsfwPlaceholder
	}
	if thumb != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumb}
	}
	return e
}

// characterEmbed renders a character record. The portrait is shown full
// size by default; compact switches it to a thumbnail for the dense
// info/trait views.
func characterEmbed(c *vndb.Character, description, footer string, compact bool) *discordgo.MessageEmbed {
	title := c.Name
	if c.Original != "" {
		title = fmt.Sprintf("%s (%s)", c.Name, c.Original)
	}

	e := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		URL:         fmt.Sprintf("https://vndb.org/c%d", c.ID),
	}
	if footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}

	if c.Image != "" {
		if compact {
			e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: c.Image}
		} else {
			e.Image = &discordgo.MessageEmbedImage{URL: c.Image}
		}
	}
	return e
}
