package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"vnbot/pkg/vndb"

	"github.com/bwmarrin/discordgo"
)

// How many candidates a disambiguation prompt offers at most.
const maxChoices = 9

const truncationNotice = "Some search results not shown. Refine your search terms to display them."

type resolveOpts struct {
	channelID string
	userID    string // empty: never prompt, take the first item

	// first takes items[0] even when several came back. Relations queries
	// use this: they are already scoped by an exact id match, so extra
	// items are data nuance rather than ambiguity.
	first bool

	// showOriginal appends the original-language name to each candidate.
	showOriginal bool
}

// resolve classifies a result set into none / one / many. "Many" hands
// off to the disambiguation prompt. ok is false when there is no result
// or the user never made a valid selection.
func resolve[T vndb.Record](ctx context.Context, h *Handler, s Session, res *vndb.Results[T], opts resolveOpts) (item *T, ok bool) {
	if res.Num == 0 || len(res.Items) == 0 {
		return nil, false
	}
	if opts.first || opts.userID == "" || len(res.Items) == 1 {
		return &res.Items[0], true
	}
	return choosePrompt(ctx, h, s, res, opts)
}

// choosePrompt shows a numbered candidate list and waits for the
// requesting user's reply in the same channel. Timeout and invalid
// selections fail silently.
func choosePrompt[T vndb.Record](ctx context.Context, h *Handler, s Session, res *vndb.Results[T], opts resolveOpts) (*T, bool) {
	shown := len(res.Items)
	if shown > maxChoices {
		shown = maxChoices
	}

	var b strings.Builder
	for i := 0; i < shown; i++ {
		item := res.Items[i]
		if opts.showOriginal && item.OriginalName() != "" {
			fmt.Fprintf(&b, "**[%d]** %s (%s)\n", i+1, item.Label(), item.OriginalName())
		} else {
			fmt.Fprintf(&b, "**[%d]** %s\n", i+1, item.Label())
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Which did you mean?",
		Description: b.String(),
	}
	if res.Num > maxChoices {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: truncationNotice}
	}
	h.postEmbed(s, opts.channelID, embed)

	reply, ok := h.prompter.Await(ctx, opts.channelID, opts.userID, h.promptTimeout)
	if !ok {
		return nil, false
	}

	index, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || index < 1 || index > shown {
		return nil, false
	}
	return &res.Items[index-1], true
}

// reportQueryError handles a failed protocol round. Throttling is the one
// user-visible case: the notice goes out, the flow sleeps for the
// server-mandated duration and the query stays abandoned; nothing retries
// it. Everything else is logged as an internal fault.
func (h *Handler) reportQueryError(ctx context.Context, s Session, channelID string, err error) {
	var throttled *vndb.ThrottledError
	if errors.As(err, &throttled) {
		h.say(s, channelID, fmt.Sprintf("Too many requests. Sleeping for %d seconds.", int(throttled.Wait.Seconds())))
		h.sleep(ctx, throttled.Wait)
		return
	}
	log.Printf("VNDB query failed: %v", err)
}

func (h *Handler) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
