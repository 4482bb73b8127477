package bot

import (
	"context"

	"vnbot/pkg/vndb"

	"github.com/bwmarrin/discordgo"
)

// Session interface abstracts discordgo.Session for testing
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) (err error)
}

// DiscordSession adapts discordgo.Session to the Session interface
type DiscordSession struct {
	*discordgo.Session
}

// VNDBSession is one live authenticated connection to the metadata API.
// It must not be shared across flows; one request is in flight at a time.
type VNDBSession interface {
	VN(ctx context.Context, fields string, f vndb.Filter) (*vndb.Results[vndb.VN], error)
	Characters(ctx context.Context, fields string, f vndb.Filter) (*vndb.Results[vndb.Character], error)
	StaffByID(ctx context.Context, id int) (*vndb.Results[vndb.Staff], error)
	Stats(ctx context.Context) (*vndb.Stats, error)
	Close() error
}

// Connector opens a fresh VNDBSession. The handler connects before each
// top-level query instead of pipelining on a shared connection.
type Connector interface {
	Connect(ctx context.Context) (VNDBSession, error)
}

// DialerConnector adapts vndb.Dialer to the Connector interface.
type DialerConnector struct {
	Dialer *vndb.Dialer
}

func (d *DialerConnector) Connect(ctx context.Context) (VNDBSession, error) {
	return d.Dialer.Connect(ctx)
}
