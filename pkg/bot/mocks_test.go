package bot

import (
	"context"
	"sync"
	"time"

	"vnbot/pkg/lookup"
	"vnbot/pkg/vndb"

	"github.com/bwmarrin/discordgo"
)

// MockSession implements Session for testing
type MockSession struct {
	mu           sync.Mutex
	sentMessages []string
	sentEmbeds   []*discordgo.MessageEmbed
	TypingCalls  int
}

func (m *MockSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentMessages = append(m.sentMessages, content)
	return &discordgo.Message{ID: "mock_msg_id", ChannelID: channelID, Content: content}, nil
}

func (m *MockSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentEmbeds = append(m.sentEmbeds, embed)
	return &discordgo.Message{ID: "mock_msg_id", ChannelID: channelID}, nil
}

func (m *MockSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TypingCalls++
	return nil
}

func (m *MockSession) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sentMessages...)
}

func (m *MockSession) Embeds() []*discordgo.MessageEmbed {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*discordgo.MessageEmbed(nil), m.sentEmbeds...)
}

type vndbCall struct {
	fields string
	filter string
}

// fakeVNDB scripts API responses. Result queues are consumed one per
// call; an exhausted queue yields an empty result set.
type fakeVNDB struct {
	mu        sync.Mutex
	vnQueue   []*vndb.Results[vndb.VN]
	charQueue []*vndb.Results[vndb.Character]
	staff     map[int]*vndb.Staff
	stats     *vndb.Stats
	err       error

	vnCalls    []vndbCall
	charCalls  []vndbCall
	staffCalls []int
	closed     bool
}

func (f *fakeVNDB) VN(ctx context.Context, fields string, flt vndb.Filter) (*vndb.Results[vndb.VN], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vnCalls = append(f.vnCalls, vndbCall{fields, flt.String()})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.vnQueue) == 0 {
		return &vndb.Results[vndb.VN]{}, nil
	}
	res := f.vnQueue[0]
	f.vnQueue = f.vnQueue[1:]
	return res, nil
}

func (f *fakeVNDB) Characters(ctx context.Context, fields string, flt vndb.Filter) (*vndb.Results[vndb.Character], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charCalls = append(f.charCalls, vndbCall{fields, flt.String()})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.charQueue) == 0 {
		return &vndb.Results[vndb.Character]{}, nil
	}
	res := f.charQueue[0]
	f.charQueue = f.charQueue[1:]
	return res, nil
}

func (f *fakeVNDB) StaffByID(ctx context.Context, id int) (*vndb.Results[vndb.Staff], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staffCalls = append(f.staffCalls, id)
	if f.err != nil {
		return nil, f.err
	}
	if st, ok := f.staff[id]; ok {
		return &vndb.Results[vndb.Staff]{Num: 1, Items: []vndb.Staff{*st}}, nil
	}
	return &vndb.Results[vndb.Staff]{}, nil
}

func (f *fakeVNDB) Stats(ctx context.Context) (*vndb.Stats, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.stats == nil {
		return &vndb.Stats{}, nil
	}
	return f.stats, nil
}

func (f *fakeVNDB) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeVNDB) lastVNCall() vndbCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vnCalls[len(f.vnCalls)-1]
}

// fakeConnector hands out scripted sessions in order; the last one is
// reused when the queue runs dry.
type fakeConnector struct {
	mu       sync.Mutex
	sessions []*fakeVNDB
	err      error
	connects int
}

func (c *fakeConnector) Connect(ctx context.Context) (VNDBSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.sessions) == 0 {
		return &fakeVNDB{}, nil
	}
	s := c.sessions[0]
	if len(c.sessions) > 1 {
		c.sessions = c.sessions[1:]
	}
	return s, nil
}

func newTestHandler(conn Connector, tags, traits *lookup.Table) *Handler {
	if tags == nil {
		tags = lookup.New(nil)
	}
	if traits == nil {
		traits = lookup.New(nil)
	}
	return NewHandler(conn, tags, traits, ".vn", 500*time.Millisecond, time.Second)
}
