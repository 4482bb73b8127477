package bot

import (
	"context"
	"strconv"
	"strings"
)

const helpIndex = `Reply with a number to read more.

**[1]** Information
**[2]** Game Commands
**[3]** Tag Commands
**[4]** Character Commands
**[5]** Trait Commands`

var helpSections = []struct {
	title string
	body  string
}{
	{"Information:", `I look things up on the VNDB visual novel database.

Commands start with ` + "`.vn`" + `. When a search matches several titles I post a numbered list; reply with the number within 10 seconds to pick one.

Spoilers in descriptions, tags and traits are hidden behind ||spoiler bars||.`},
	{"Game Commands:", "`search <title>` (`s`, `find`, `f`) - find a visual novel and show its description\n" +
		"`gettags <title>` (`gt`) - show a novel's tags\n" +
		"`getcharacters <title>` (`gc`) - list a novel's characters\n" +
		"`getrelations <title>` (`gr`) - show related novels\n" +
		"`random` (`r`) - a random visual novel"},
	{"Tag Commands:", "`tagdefine <tag>` (`td`) - define a tag\n" +
		"`tagsearch <tag, tag, ...>` (`ts`) - find novels carrying every listed tag"},
	{"Character Commands:", "`character <name>` (`c`) - find a character and show their description\n" +
		"`getcharinfo <name>` (`gci`) - full character sheet with appearances and voice credits\n" +
		"`gettraits <name>` (`gtr`) - show a character's traits"},
	{"Trait Commands:", "`traitdefine <trait>` (`trd`) - define a trait\n" +
		"`traitsearch <trait, trait, ...>` (`trs`) - find characters carrying every listed trait"},
}

// help posts the section index and waits for a numbered reply from the
// requester, reusing the disambiguation prompt machinery.
func (h *Handler) help(ctx context.Context, s Session, channelID, userID string) {
	h.postEmbed(s, channelID, newEmbed("Help:", helpIndex))

	reply, ok := h.prompter.Await(ctx, channelID, userID, h.promptTimeout)
	if !ok {
		return
	}
	index, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || index < 1 || index > len(helpSections) {
		return
	}

	section := helpSections[index-1]
	h.postEmbed(s, channelID, newEmbed(section.title, section.body))
}
