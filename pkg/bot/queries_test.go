package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"testing"
	"time"

	"vnbot/pkg/lookup"
	"vnbot/pkg/vndb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTagTable() *lookup.Table {
	return lookup.New([]*lookup.Entry{
		{ID: 96, Name: "Romance", Searchable: true},
		{ID: 97, Name: "Moe", Aliases: []string{"moeblob"}, Description: "Cute.", Searchable: true},
		{ID: 43, Name: "Meta", Description: "Not searchable.", Searchable: false},
	})
}

func TestSearchGameFound(t *testing.T) {
	api := &fakeVNDB{
		vnQueue: []*vndb.Results[vndb.VN]{{
			Num: 1,
			Items: []vndb.VN{{
				ID:          4,
				Title:       "Clannad",
				Released:    "2004-04-28",
				Description: "The story follows Tomoya Okazaki.",
				Image:       "https://s2.vndb.org/cv/99/19999.jpg",
			}},
		}},
	}
	conn := &fakeConnector{sessions: []*fakeVNDB{api}}
	h := newTestHandler(conn, nil, nil)
	mock := &MockSession{}

	h.searchGame(context.Background(), mock, "c", "u", vndb.TitleSearch("clannad"))

	call := api.lastVNCall()
	assert.Equal(t, "basic,details", call.fields)
	assert.Equal(t, `(title ~ "clannad" or original ~ "clannad")`, call.filter)

	embeds := mock.Embeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "Clannad", embeds[0].Title)
	assert.Equal(t, "https://vndb.org/v4", embeds[0].URL)
	assert.Equal(t, "The story follows Tomoya Okazaki.", embeds[0].Description)
	require.NotNil(t, embeds[0].Footer)
	assert.Equal(t, "Release date: 2004-04-28", embeds[0].Footer.Text)
	require.NotNil(t, embeds[0].Thumbnail)
	assert.Equal(t, "https://s2.vndb.org/cv/99/19999.jpg", embeds[0].Thumbnail.URL)

	assert.True(t, api.closed, "the session must be closed after the query")
}

func TestSearchGameNotFound(t *testing.T) {
	conn := &fakeConnector{}
	h := newTestHandler(conn, nil, nil)
	mock := &MockSession{}

	h.searchGame(context.Background(), mock, "c", "u", vndb.TitleSearch("no such game"))

	assert.Equal(t, []string{"Visual novel not found."}, mock.Messages())
	assert.Empty(t, mock.Embeds())
}

func TestSearchGameNSFWCover(t *testing.T) {
	api := &fakeVNDB{
		vnQueue: []*vndb.Results[vndb.VN]{{
			Num:   1,
			Items: []vndb.VN{{ID: 7, Title: "Some Nukige", Image: "https://s2.vndb.org/cv/1/1.jpg", ImageNSFW: true}},
		}},
	}
	h := newTestHandler(&fakeConnector{sessions: []*fakeVNDB{api}}, nil, nil)
	mock := &MockSession{}

	h.searchGame(context.Background(), mock, "c", "u", vndb.TitleSearch("nukige"))

	embeds := mock.Embeds()
	require.Len(t, embeds, 1)
	require.NotNil(t, embeds[0].Thumbnail)
	assert.Equal(t, nsfwPlaceholder, embeds[0].Thumbnail.URL)
}

func TestSearchGameDisambiguation(t *testing.T) {
	items := make([]vndb.VN, 12)
	for i := range items {
		items[i] = vndb.VN{ID: i + 1, Title: fmt.Sprintf("Fate Entry %d", i+1)}
	}
	api := &fakeVNDB{vnQueue: []*vndb.Results[vndb.VN]{{Num: 12, Items: items}}}
	h := newTestHandler(&fakeConnector{sessions: []*fakeVNDB{api}}, nil, nil)
	mock := &MockSession{}

	done := make(chan struct{})
	go func() {
		h.searchGame(context.Background(), mock, "c", "u", vndb.TitleSearch("fate"))
		close(done)
	}()

	answerPrompt(t, h, "c", "u", "3")
	<-done

	embeds := mock.Embeds()
	require.Len(t, embeds, 2, "prompt plus result")
	assert.Equal(t, "Which did you mean?", embeds[0].Title)
	assert.Equal(t, "Fate Entry 3", embeds[1].Title)
	assert.Equal(t, "https://vndb.org/v3", embeds[1].URL)
}

func TestGameTagsSpoilerMasking(t *testing.T) {
	api := &fakeVNDB{
		vnQueue: []*vndb.Results[vndb.VN]{{
			Num: 1,
			Items: []vndb.VN{{
				ID:    4,
				Title: "Clannad",
				Tags: []vndb.VNTag{
					{ID: 97, Score: 2.5, Spoiler: 0},
					{ID: 96, Score: 2.0, Spoiler: 2},
					{ID: 12345, Score: 1.0, Spoiler: 0}, // unknown id, skipped
				},
			}},
		}},
	}
	h := newTestHandler(&fakeConnector{sessions: []*fakeVNDB{api}}, testTagTable(), nil)
	mock := &MockSession{}

	h.gameTags(context.Background(), mock, "c", "u", vndb.TitleSearch("clannad"))

	assert.Equal(t, "basic,details,tags", api.lastVNCall().fields)

	embeds := mock.Embeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "Moe, ||Romance||", embeds[0].Description)
}

func TestGameCharactersReusesSession(t *testing.T) {
	api := &fakeVNDB{
		vnQueue: []*vndb.Results[vndb.VN]{{
			Num:   2, // two title hits, no prompt: the follow-up takes the first
			Items: []vndb.VN{{ID: 4, Title: "Clannad"}, {ID: 5, Title: "Clannad Side Stories"}},
		}},
		charQueue: []*vndb.Results[vndb.Character]{{
			Num:   1,
			Items: []vndb.Character{{ID: 10, Name: "Nagisa Furukawa", Description: "Club president."}},
		}},
	}
	conn := &fakeConnector{sessions: []*fakeVNDB{api}}
	h := newTestHandler(conn, nil, nil)
	mock := &MockSession{}

	h.gameCharacters(context.Background(), mock, "c", "u", "clannad")

	assert.Equal(t, 1, conn.connects, "both stages share one session")
	require.Len(t, api.charCalls, 1)
	assert.Equal(t, "(vn = 4)", api.charCalls[0].filter)

	embeds := mock.Embeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "Nagisa Furukawa", embeds[0].Title)
	assert.Empty(t, mock.Messages())
}

func TestGameRelationsTakesFirstWithoutPrompt(t *testing.T) {
	api := &fakeVNDB{
		vnQueue: []*vndb.Results[vndb.VN]{{
			Num: 3,
			Items: []vndb.VN{{
				ID:    4,
				Title: "Clannad",
				Relations: []vndb.Relation{
					{ID: 249, Title: "Tomoyo After ~It's a Wonderful Life~"},
					{ID: 51, Title: "Kanon"},
				},
			}},
		}},
	}
	h := newTestHandler(&fakeConnector{sessions: []*fakeVNDB{api}}, nil, nil)
	mock := &MockSession{}

	h.gameRelations(context.Background(), mock, "c", "u", vndb.TitleSearch("clannad"))

	embeds := mock.Embeds()
	require.Len(t, embeds, 1, "several title hits must not prompt here")
	assert.Contains(t, embeds[0].Description, "**Related Visual Novels:**")
	assert.Contains(t, embeds[0].Description, "Tomoyo After ~It's a Wonderful Life~\nhttps://vndb.org/v249")
	assert.Contains(t, embeds[0].Description, "Kanon\nhttps://vndb.org/v51")
}

func TestRandomGame(t *testing.T) {
	statsSession := &fakeVNDB{stats: &vndb.Stats{VN: 100}}
	searchSession := &fakeVNDB{
		vnQueue: []*vndb.Results[vndb.VN]{{Num: 1, Items: []vndb.VN{{ID: 42, Title: "Saya no Uta"}}}},
	}
	conn := &fakeConnector{sessions: []*fakeVNDB{statsSession, searchSession}}
	h := newTestHandler(conn, nil, nil)
	mock := &MockSession{}

	h.randomGame(context.Background(), mock, "c")

	assert.Equal(t, 2, conn.connects, "stats and lookup run on separate sessions")

	call := searchSession.lastVNCall()
	m := regexp.MustCompile(`^\(id = (\d+)\)$`).FindStringSubmatch(call.filter)
	require.NotNil(t, m, "lookup filter %q must be an exact id match", call.filter)
	id, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, 1)
	assert.LessOrEqual(t, id, 100)

	embeds := mock.Embeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "Saya no Uta", embeds[0].Title)
}

func TestTagDefine(t *testing.T) {
	h := newTestHandler(&fakeConnector{}, testTagTable(), nil)
	mock := &MockSession{}

	h.tagDefine(mock, "c", "moeblob")

	embeds := mock.Embeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "Moe", embeds[0].Title)
	assert.Equal(t, "Cute.", embeds[0].Description)
	assert.Equal(t, "https://vndb.org/g97", embeds[0].URL)
	require.NotNil(t, embeds[0].Footer)
	assert.Equal(t, "Aliases: moeblob", embeds[0].Footer.Text)
}

func TestTagDefineUnknown(t *testing.T) {
	h := newTestHandler(&fakeConnector{}, testTagTable(), nil)
	mock := &MockSession{}

	h.tagDefine(mock, "c", "no such tag")

	assert.Equal(t, []string{"Tag not found."}, mock.Messages())
}

func TestTagSearchTokenization(t *testing.T) {
	api := &fakeVNDB{
		vnQueue: []*vndb.Results[vndb.VN]{{Num: 1, Items: []vndb.VN{{ID: 4, Title: "Clannad"}}}},
	}
	h := newTestHandler(&fakeConnector{sessions: []*fakeVNDB{api}}, testTagTable(), nil)
	mock := &MockSession{}

	h.tagSearch(context.Background(), mock, "c", "u", "moe, romance")

	assert.Equal(t, "(tags = [97] and tags = [96])", api.lastVNCall().filter)
}

func TestTagSearchDropsUnknownAndUnsearchable(t *testing.T) {
	api := &fakeVNDB{
		vnQueue: []*vndb.Results[vndb.VN]{{Num: 1, Items: []vndb.VN{{ID: 4, Title: "Clannad"}}}},
	}
	h := newTestHandler(&fakeConnector{sessions: []*fakeVNDB{api}}, testTagTable(), nil)
	mock := &MockSession{}

	// "meta" exists but is not searchable; "bogus" does not exist.
	h.tagSearch(context.Background(), mock, "c", "u", "moe, bogus, meta")

	assert.Equal(t, "(tags = [97])", api.lastVNCall().filter)
}

func TestTagSearchAllUnknown(t *testing.T) {
	conn := &fakeConnector{}
	h := newTestHandler(conn, testTagTable(), nil)
	mock := &MockSession{}

	h.tagSearch(context.Background(), mock, "c", "u", "bogus, meta")

	assert.Equal(t, []string{"Tag(s) not found."}, mock.Messages())
	assert.Zero(t, conn.connects, "no query without a usable term")
}

func TestSearchCharacterNotFound(t *testing.T) {
	h := newTestHandler(&fakeConnector{}, nil, nil)
	mock := &MockSession{}

	h.searchCharacter(context.Background(), mock, "c", "u", vndb.NameSearch("nobody"))

	assert.Equal(t, []string{"Literally who?"}, mock.Messages())
}

func TestCharacterTraits(t *testing.T) {
	traits := lookup.New([]*lookup.Entry{
		{ID: 11, Name: "Long Hair", Searchable: true},
		{ID: 12, Name: "Secretly a Ghost", Searchable: true},
	})
	api := &fakeVNDB{
		charQueue: []*vndb.Results[vndb.Character]{{
			Num: 1,
			Items: []vndb.Character{{
				ID:     10,
				Name:   "Nagisa Furukawa",
				Image:  "https://s2.vndb.org/ch/1/1.jpg",
				Traits: []vndb.CharTrait{{ID: 11, Spoiler: 0}, {ID: 12, Spoiler: 2}},
			}},
		}},
	}
	h := newTestHandler(&fakeConnector{sessions: []*fakeVNDB{api}}, nil, traits)
	mock := &MockSession{}

	h.characterTraits(context.Background(), mock, "c", "u", vndb.NameSearch("nagisa"))

	require.Len(t, api.charCalls, 1)
	assert.Equal(t, "basic,details,traits", api.charCalls[0].fields)

	embeds := mock.Embeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "Long Hair, ||Secretly a Ghost||", embeds[0].Description)
	require.NotNil(t, embeds[0].Thumbnail, "dense views use the compact portrait")
}

func TestCharacterInfo(t *testing.T) {
	api := &fakeVNDB{
		charQueue: []*vndb.Results[vndb.Character]{{
			Num: 1,
			Items: []vndb.Character{{
				ID:        10,
				Name:      "Nagisa Furukawa",
				Original:  "古河 渚",
				Aliases:   "Nagisa\nFurukawa-san",
				Gender:    "f",
				BloodType: "a",
				Height:    155,
				Weight:    43,
				Bust:      80, Waist: 55, Hip: 81,
				VNs: []vndb.CharacterVN{
					{VN: 4, Role: "main"},
					{VN: 5, Role: "side"},
				},
				Voiced: []vndb.VoiceCredit{
					{ID: 100, AliasID: 1001, VN: 4},
					{ID: 100, AliasID: 1001, VN: 5}, // same performer, other release
				},
			}},
		}},
		vnQueue: []*vndb.Results[vndb.VN]{
			{Num: 1, Items: []vndb.VN{{ID: 4, Title: "Clannad"}}},
			{Num: 1, Items: []vndb.VN{{ID: 5, Title: "Clannad Side Stories"}}},
		},
		staff: map[int]*vndb.Staff{
			100: {
				ID:       100,
				Name:     "Nakahara Mai",
				Original: "中原 麻衣",
				Aliases:  []vndb.StaffAlias{{ID: 1001, Name: "Nakahara Mai", Original: "中原 麻衣"}},
			},
		},
	}
	conn := &fakeConnector{sessions: []*fakeVNDB{api}}
	h := newTestHandler(conn, nil, nil)
	mock := &MockSession{}

	h.characterInfo(context.Background(), mock, "c", "u", vndb.NameSearch("nagisa"))

	assert.Equal(t, 1, conn.connects, "nested lookups reuse the session")
	require.Len(t, api.charCalls, 1)
	assert.Equal(t, "basic,details,meas,voiced,vns", api.charCalls[0].fields)
	assert.Equal(t, []int{100}, api.staffCalls, "duplicate voice credits collapse to one lookup")

	embeds := mock.Embeds()
	require.Len(t, embeds, 1)
	e := embeds[0]
	assert.Equal(t, "Nagisa Furukawa (古河 渚)", e.Title)
	assert.Equal(t, "https://vndb.org/c10", e.URL)
	assert.Contains(t, e.Description, "**Aliases:**\n- Nagisa\n- Furukawa-san")
	assert.Contains(t, e.Description, "**Gender:**\n- Female")
	assert.Contains(t, e.Description, "**Blood Type:**\n- A")
	assert.Contains(t, e.Description, "- 155cm\n- 43 kg\n- 80/55/81 cm")
	assert.Contains(t, e.Description, "**Appears in:**\n- Clannad\n- Clannad Side Stories")
	assert.Contains(t, e.Description, "**Voiced by:**\n- Nakahara Mai (中原 麻衣)")
}

func TestConnectFailureIsSilentForUser(t *testing.T) {
	conn := &fakeConnector{err: fmt.Errorf("dial tcp: connection refused")}
	h := newTestHandler(conn, nil, nil)
	mock := &MockSession{}

	h.searchGame(context.Background(), mock, "c", "u", vndb.TitleSearch("clannad"))

	assert.Empty(t, mock.Messages())
	assert.Empty(t, mock.Embeds())
}

func TestConnectBoundedByQueryTimeout(t *testing.T) {
	blocked := &slowConnector{release: make(chan struct{})}
	h := NewHandler(blocked, lookup.New(nil), lookup.New(nil), ".vn", 500*time.Millisecond, 30*time.Millisecond)
	mock := &MockSession{}

	start := time.Now()
	h.searchGame(context.Background(), mock, "c", "u", vndb.TitleSearch("clannad"))
	assert.Less(t, time.Since(start), 400*time.Millisecond, "dial must be cut off by the query timeout")
	close(blocked.release)
}

// slowConnector blocks until its context expires or it is released.
type slowConnector struct {
	release chan struct{}
}

func (c *slowConnector) Connect(ctx context.Context) (VNDBSession, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.release:
		return &fakeVNDB{}, nil
	}
}
