package bot

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"vnbot/pkg/lookup"
	"vnbot/pkg/vndb"

	"github.com/bwmarrin/discordgo"
)

const (
	msgGameNotFound  = "Visual novel not found."
	msgCharNotFound  = "Literally who?"
	msgTagNotFound   = "Tag not found."
	msgTagsNotFound  = "Tag(s) not found."
	msgTraitNotFound = "Trait not found."
	msgTraitsMissing = "Trait(s) not found."
)

// connect opens a fresh API session for one top-level query. The dial and
// handshake are bounded by the query timeout.
func (h *Handler) connect(ctx context.Context) (VNDBSession, error) {
	cctx, cancel := context.WithTimeout(ctx, h.queryTimeout)
	defer cancel()
	return h.connector.Connect(cctx)
}

// searchGame finds a VN by filter and posts its description.
func (h *Handler) searchGame(ctx context.Context, s Session, channelID, userID string, f vndb.Filter) {
	vs, err := h.connect(ctx)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}
	defer vs.Close()

	res, err := vs.VN(ctx, "basic,details", f)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}

	game, ok := resolve(ctx, h, s, res, resolveOpts{channelID: channelID, userID: userID})
	if !ok {
		if res.Num == 0 {
			h.say(s, channelID, msgGameNotFound)
		}
		return
	}

	description := "No description."
	if game.Description != "" {
		description = cleanDescription(game.Description)
	}
	h.postEmbed(s, channelID, gameEmbed(game, description, ""))
}

// gameTags finds a VN and posts its tag list, spoiler-masked.
func (h *Handler) gameTags(ctx context.Context, s Session, channelID, userID string, f vndb.Filter) {
	vs, err := h.connect(ctx)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}
	defer vs.Close()

	res, err := vs.VN(ctx, "basic,details,tags", f)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}

	game, ok := resolve(ctx, h, s, res, resolveOpts{channelID: channelID, userID: userID})
	if !ok {
		if res.Num == 0 {
			h.say(s, channelID, msgGameNotFound)
		}
		return
	}

	description, footer := renderSpoilerList(h.tags, vnTagRefs(game.Tags), "No tags found.", "Some tags not shown.")
	h.postEmbed(s, channelID, gameEmbed(game, description, footer))
}

// gameCharacters is the two-stage query: resolve the title to a game id
// without prompting, then list characters appearing in that game.
func (h *Handler) gameCharacters(ctx context.Context, s Session, channelID, userID, args string) {
	vs, err := h.connect(ctx)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}
	defer vs.Close()

	res, err := vs.VN(ctx, "basic", vndb.TitleSearch(args))
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}

	game, ok := resolve(ctx, h, s, res, resolveOpts{channelID: channelID})
	if !ok {
		h.say(s, channelID, msgGameNotFound)
		return
	}

	h.characterOn(ctx, vs, s, channelID, userID, vndb.Eq("vn", game.ID))
}

// gameRelations posts the titles related to a VN. The first result is
// always taken: the follow-up renders links scoped by exact ids, so extra
// hits are not user-resolvable ambiguity.
func (h *Handler) gameRelations(ctx context.Context, s Session, channelID, userID string, f vndb.Filter) {
	vs, err := h.connect(ctx)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}
	defer vs.Close()

	res, err := vs.VN(ctx, "basic,details,relations", f)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}

	game, ok := resolve(ctx, h, s, res, resolveOpts{channelID: channelID, userID: userID, first: true})
	if !ok {
		h.say(s, channelID, msgGameNotFound)
		return
	}

	var b strings.Builder
	b.WriteString("**Related Visual Novels:**\n\n")
	for _, r := range game.Relations {
		fmt.Fprintf(&b, "%s\nhttps://vndb.org/v%d\n\n", r.Title, r.ID)
	}
	h.postEmbed(s, channelID, gameEmbed(game, b.String(), ""))
}

// randomGame picks a uniformly random id from the database statistics and
// looks it up like a normal search.
func (h *Handler) randomGame(ctx context.Context, s Session, channelID string) {
	vs, err := h.connect(ctx)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}

	stats, err := vs.Stats(ctx)
	vs.Close()
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}
	if stats.VN < 1 {
		log.Printf("dbstats reported %d visual novels", stats.VN)
		return
	}

	id := rand.Intn(stats.VN) + 1
	h.searchGame(ctx, s, channelID, "", vndb.Eq("id", id))
}

// tagDefine answers straight from the in-memory tag table.
func (h *Handler) tagDefine(s Session, channelID, args string) {
	h.defineEntry(s, channelID, h.tags, args, "g", msgTagNotFound)
}

// traitDefine answers straight from the in-memory trait table.
func (h *Handler) traitDefine(s Session, channelID, args string) {
	h.defineEntry(s, channelID, h.traits, args, "i", msgTraitNotFound)
}

func (h *Handler) defineEntry(s Session, channelID string, table *lookup.Table, alias, urlKind, missing string) {
	entry, ok := table.Find(alias)
	if !ok {
		h.say(s, channelID, missing)
		return
	}

	e := &discordgo.MessageEmbed{
		Title:       entry.Name,
		Description: cleanDescription(entry.Description),
		URL:         fmt.Sprintf("https://vndb.org/%s%d", urlKind, entry.ID),
	}
	if len(entry.Aliases) > 0 {
		e.Footer = &discordgo.MessageEmbedFooter{Text: "Aliases: " + strings.Join(entry.Aliases, ", ")}
	}
	h.postEmbed(s, channelID, e)
}

// tagSearch resolves comma-separated tag aliases and finds VNs carrying
// all of them.
func (h *Handler) tagSearch(ctx context.Context, s Session, channelID, userID, args string) {
	terms := resolveSearchTerms(h.tags, "tags", args)
	if len(terms) == 0 {
		h.say(s, channelID, msgTagsNotFound)
		return
	}
	h.searchGame(ctx, s, channelID, userID, vndb.And(terms...))
}

// traitSearch resolves comma-separated trait aliases and finds characters
// carrying all of them.
func (h *Handler) traitSearch(ctx context.Context, s Session, channelID, userID, args string) {
	terms := resolveSearchTerms(h.traits, "traits", args)
	if len(terms) == 0 {
		h.say(s, channelID, msgTraitsMissing)
		return
	}
	h.searchCharacter(ctx, s, channelID, userID, vndb.And(terms...))
}

// resolveSearchTerms maps alias tokens onto id filter terms, dropping
// anything unknown or not flagged searchable.
func resolveSearchTerms(table *lookup.Table, field, args string) []vndb.Filter {
	var terms []vndb.Filter
	for _, tok := range strings.Split(args, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if entry, ok := table.Find(tok); ok && entry.Searchable {
			terms = append(terms, vndb.In(field, []int{entry.ID}))
		}
	}
	return terms
}

// searchCharacter finds a character by filter and posts their description.
func (h *Handler) searchCharacter(ctx context.Context, s Session, channelID, userID string, f vndb.Filter) {
	vs, err := h.connect(ctx)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}
	defer vs.Close()

	h.characterOn(ctx, vs, s, channelID, userID, f)
}

// characterOn runs the character search on an already-open session.
func (h *Handler) characterOn(ctx context.Context, vs VNDBSession, s Session, channelID, userID string, f vndb.Filter) {
	res, err := vs.Characters(ctx, "basic,details", f)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}

	ch, ok := resolve(ctx, h, s, res, resolveOpts{channelID: channelID, userID: userID, showOriginal: true})
	if !ok {
		if res.Num == 0 {
			h.say(s, channelID, msgCharNotFound)
		}
		return
	}

	description := "No description."
	if ch.Description != "" {
		description = cleanDescription(ch.Description)
	}
	h.postEmbed(s, channelID, characterEmbed(ch, description, "", false))
}

// characterTraits finds a character and posts their trait list.
func (h *Handler) characterTraits(ctx context.Context, s Session, channelID, userID string, f vndb.Filter) {
	vs, err := h.connect(ctx)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}
	defer vs.Close()

	res, err := vs.Characters(ctx, "basic,details,traits", f)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}

	ch, ok := resolve(ctx, h, s, res, resolveOpts{channelID: channelID, userID: userID, showOriginal: true})
	if !ok {
		if res.Num == 0 {
			h.say(s, channelID, msgCharNotFound)
		}
		return
	}

	description, footer := renderSpoilerList(h.traits, charTraitRefs(ch.Traits), "No traits found.", "Some traits not shown.")
	h.postEmbed(s, channelID, characterEmbed(ch, description, footer, true))
}

// characterInfo posts the full character sheet: aliases, measurements,
// appearances and voice credits. Appearances and performers come from
// nested lookups on the same session.
func (h *Handler) characterInfo(ctx context.Context, s Session, channelID, userID string, f vndb.Filter) {
	vs, err := h.connect(ctx)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}
	defer vs.Close()

	res, err := vs.Characters(ctx, "basic,details,meas,voiced,vns", f)
	if err != nil {
		h.reportQueryError(ctx, s, channelID, err)
		return
	}

	ch, ok := resolve(ctx, h, s, res, resolveOpts{channelID: channelID, userID: userID, showOriginal: true})
	if !ok {
		if res.Num == 0 {
			h.say(s, channelID, msgCharNotFound)
		}
		return
	}

	var b strings.Builder

	if ch.Aliases != "" {
		b.WriteString("**Aliases:**\n")
		for _, alias := range strings.Split(ch.Aliases, "\n") {
			if alias = strings.TrimSpace(alias); alias != "" {
				fmt.Fprintf(&b, "- %s\n", alias)
			}
		}
		b.WriteString("\n")
	}

	if g, ok := genderNames[ch.Gender]; ok {
		fmt.Fprintf(&b, "**Gender:**\n- %s\n\n", g)
	}
	if ch.BloodType != "" {
		fmt.Fprintf(&b, "**Blood Type:**\n- %s\n\n", strings.ToUpper(ch.BloodType))
	}

	hasBWH := ch.Bust > 0 && ch.Waist > 0 && ch.Hip > 0
	if ch.Height > 0 || ch.Weight > 0 || hasBWH {
		b.WriteString("**Measurements:**\n")
		if ch.Height > 0 {
			fmt.Fprintf(&b, "- %dcm\n", ch.Height)
		}
		if ch.Weight > 0 {
			fmt.Fprintf(&b, "- %d kg\n", ch.Weight)
		}
		if hasBWH {
			fmt.Fprintf(&b, "- %d/%d/%d cm\n", ch.Bust, ch.Waist, ch.Hip)
		}
		b.WriteString("\n")
	}

	if len(ch.VNs) > 0 {
		b.WriteString("**Appears in:**\n")
		for _, appearance := range ch.VNs {
			games, err := vs.VN(ctx, "basic", vndb.Eq("id", appearance.VN))
			if err != nil {
				h.reportQueryError(ctx, s, channelID, err)
				return
			}
			if len(games.Items) > 0 {
				fmt.Fprintf(&b, "- %s\n", games.Items[0].Title)
			}
		}
		b.WriteString("\n")
	}

	if len(ch.Voiced) > 0 {
		b.WriteString("**Voiced by:**\n")
		seen := make(map[int]bool)
		for _, credit := range ch.Voiced {
			if seen[credit.ID] {
				continue
			}
			seen[credit.ID] = true

			performers, err := vs.StaffByID(ctx, credit.ID)
			if err != nil {
				h.reportQueryError(ctx, s, channelID, err)
				return
			}
			if len(performers.Items) == 0 {
				continue
			}
			name, original := creditedName(&performers.Items[0], credit.AliasID)
			if original != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", name, original)
			} else {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
		b.WriteString("\n")
	}

	h.postEmbed(s, channelID, characterEmbed(ch, b.String(), "", true))
}

var genderNames = map[string]string{
	"m": "Male",
	"f": "Female",
	"b": "Both",
}

// creditedName picks the staff alias the voice credit names; the
// canonical name covers credits whose alias id is not listed.
func creditedName(performer *vndb.Staff, aliasID int) (name, original string) {
	for _, alias := range performer.Aliases {
		if alias.ID == aliasID {
			return alias.Name, alias.Original
		}
	}
	return performer.Name, performer.Original
}

// spoilerRef is one id+spoiler pair from a record, ready to be resolved
// against a lookup table.
type spoilerRef struct {
	id      int
	spoiler bool
}

func vnTagRefs(tags []vndb.VNTag) []spoilerRef {
	refs := make([]spoilerRef, len(tags))
	for i, t := range tags {
		refs[i] = spoilerRef{id: t.ID, spoiler: t.Spoiler > 0}
	}
	return refs
}

func charTraitRefs(traits []vndb.CharTrait) []spoilerRef {
	refs := make([]spoilerRef, len(traits))
	for i, t := range traits {
		refs[i] = spoilerRef{id: t.ID, spoiler: t.Spoiler > 0}
	}
	return refs
}

// renderSpoilerList resolves refs against a table, masks spoiler-flagged
// names and caps the joined list. Ids missing from the table are skipped.
func renderSpoilerList(table *lookup.Table, refs []spoilerRef, empty, truncNote string) (description, footer string) {
	var parts []string
	for _, ref := range refs {
		name, ok := table.Name(ref.id)
		if !ok {
			continue
		}
		if ref.spoiler {
			name = "||" + name + "||"
		}
		parts = append(parts, name)
	}

	if len(parts) == 0 {
		return empty, ""
	}

	description, truncated := capList(parts)
	if truncated {
		footer = truncNote
	}
	return description, footer
}
