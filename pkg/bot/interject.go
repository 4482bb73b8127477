package bot

import (
	"math/rand"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// interject fires on non-command messages mentioning eroge, roughly 30%
// of the time.
func (h *Handler) interject(s Session, m *discordgo.MessageCreate) {
	if rand.Intn(100) >= 30 {
		return
	}

	var msg string
	switch rand.Intn(3) {
	case 0:
		msg = "I'd just like to interject for a moment. What you're referring to as _eroge_, is in fact, _erogay_, or as I've recently taken to calling it, ero _plus_ gay."
	case 1:
		msg = strings.ReplaceAll(strings.ToLower(m.Content), "eroge", "**erogay**")
	case 2:
		msg = "**BUY LAMUNATION OUT NOW ON STEAM** https://store.steampowered.com/app/1025140/LAMUNATION_international/"
	}

	h.say(s, m.ChannelID, msg)
}
