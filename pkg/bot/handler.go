package bot

import (
	"context"
	"strings"
	"time"

	"vnbot/pkg/lookup"
	"vnbot/pkg/vndb"

	"github.com/bwmarrin/discordgo"
)

// command is the closed set of things the bot knows how to do. Unknown
// input maps to cmdUnknown rather than growing the set dynamically.
type command int

const (
	cmdUnknown command = iota
	cmdHelp
	cmdSearch
	cmdTags
	cmdCharacters
	cmdRelations
	cmdRandom
	cmdTagDefine
	cmdTagSearch
	cmdCharacter
	cmdCharInfo
	cmdCharTraits
	cmdTraitDefine
	cmdTraitSearch
)

var commandAliases = map[string]command{
	"help": cmdHelp, "h": cmdHelp,
	"search": cmdSearch, "s": cmdSearch, "find": cmdSearch, "f": cmdSearch,
	"gettags": cmdTags, "gt": cmdTags,
	"getcharacters": cmdCharacters, "getchars": cmdCharacters, "gc": cmdCharacters,
	"getrelations": cmdRelations, "getrelated": cmdRelations, "gr": cmdRelations,
	"random": cmdRandom, "rand": cmdRandom, "r": cmdRandom,
	"tagdefine": cmdTagDefine, "td": cmdTagDefine,
	"tagsearch": cmdTagSearch, "ts": cmdTagSearch,
	"character": cmdCharacter, "char": cmdCharacter, "c": cmdCharacter,
	"getcharinfo": cmdCharInfo, "charinfo": cmdCharInfo, "gci": cmdCharInfo, "gi": cmdCharInfo,
	"gettraits": cmdCharTraits, "gtr": cmdCharTraits,
	"traitdefine": cmdTraitDefine, "trd": cmdTraitDefine,
	"traitsearch": cmdTraitSearch, "trs": cmdTraitSearch,
}

func parseCommand(word string) command {
	if cmd, ok := commandAliases[word]; ok {
		return cmd
	}
	return cmdUnknown
}

// needsArgs reports whether a command is meaningless without arguments.
func (c command) needsArgs() bool {
	switch c {
	case cmdHelp, cmdRandom, cmdUnknown:
		return false
	}
	return true
}

type Handler struct {
	connector Connector
	tags      *lookup.Table
	traits    *lookup.Table
	prompter  *Prompter

	prefix        string
	promptTimeout time.Duration
	queryTimeout  time.Duration
	botID         string
}

func NewHandler(connector Connector, tags, traits *lookup.Table, prefix string, promptTimeout, queryTimeout time.Duration) *Handler {
	return &Handler{
		connector:     connector,
		tags:          tags,
		traits:        traits,
		prompter:      NewPrompter(),
		prefix:        prefix,
		promptTimeout: promptTimeout,
		queryTimeout:  queryTimeout,
	}
}

func (h *Handler) SetBotID(id string) {
	h.botID = id
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(&DiscordSession{s}, m)
}

func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author == nil || m.Author.ID == h.botID {
		return
	}

	// A flow waiting on a disambiguation reply gets first claim on the
	// author's message.
	if h.prompter.Deliver(m.ChannelID, m.Author.ID, m.Content) {
		return
	}

	content := strings.ToLower(m.Content)
	isCommand := strings.HasPrefix(content, h.prefix+" ")

	if !isCommand {
		if strings.Contains(content, "eroge") {
			h.interject(s, m)
		}
		return
	}

	word, args, _ := strings.Cut(strings.TrimSpace(content[len(h.prefix):]), " ")
	args = strings.TrimSpace(args)
	cmd := parseCommand(word)

	if cmd == cmdUnknown || (cmd.needsArgs() && args == "") {
		h.say(s, m.ChannelID, "Invalid command. Try `"+h.prefix+" help`")
		return
	}

	s.ChannelTyping(m.ChannelID)

	// The flow owns its context; socket rounds are bounded by the query
	// timeout inside the façade, not here, so the disambiguation wait and
	// throttle sleep are not cut short.
	h.dispatch(context.Background(), s, cmd, args, m.ChannelID, m.Author.ID)
}

func (h *Handler) dispatch(ctx context.Context, s Session, cmd command, args, channelID, userID string) {
	switch cmd {
	case cmdHelp:
		h.help(ctx, s, channelID, userID)
	case cmdSearch:
		h.searchGame(ctx, s, channelID, userID, vndb.TitleSearch(args))
	case cmdTags:
		h.gameTags(ctx, s, channelID, userID, vndb.TitleSearch(args))
	case cmdCharacters:
		h.gameCharacters(ctx, s, channelID, userID, args)
	case cmdRelations:
		h.gameRelations(ctx, s, channelID, userID, vndb.TitleSearch(args))
	case cmdRandom:
		h.randomGame(ctx, s, channelID)
	case cmdTagDefine:
		h.tagDefine(s, channelID, args)
	case cmdTagSearch:
		h.tagSearch(ctx, s, channelID, userID, args)
	case cmdCharacter:
		h.searchCharacter(ctx, s, channelID, userID, vndb.NameSearch(args))
	case cmdCharInfo:
		h.characterInfo(ctx, s, channelID, userID, vndb.NameSearch(args))
	case cmdCharTraits:
		h.characterTraits(ctx, s, channelID, userID, vndb.NameSearch(args))
	case cmdTraitDefine:
		h.traitDefine(s, channelID, args)
	case cmdTraitSearch:
		h.traitSearch(ctx, s, channelID, userID, args)
	}
}
