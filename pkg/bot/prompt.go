package bot

import (
	"context"
	"sync"
	"time"
)

type promptKey struct {
	channelID string
	userID    string
}

// Prompter routes a user's next message in a channel to the flow waiting
// on it. At most one pending prompt exists per user+channel pair; a newer
// prompt displaces an older one, which then times out on its own.
type Prompter struct {
	mu      sync.Mutex
	waiters map[promptKey]chan string
}

func NewPrompter() *Prompter {
	return &Prompter{waiters: make(map[promptKey]chan string)}
}

// Deliver offers an incoming message to a waiting flow and reports
// whether it was consumed as a prompt reply. Messages from other authors
// or channels never match.
func (p *Prompter) Deliver(channelID, userID, content string) bool {
	key := promptKey{channelID, userID}

	p.mu.Lock()
	ch, ok := p.waiters[key]
	if ok {
		delete(p.waiters, key)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	ch <- content
	return true
}

// Await blocks until the user replies in the channel, the timeout
// expires, or ctx is cancelled. ok is false when no reply arrived.
func (p *Prompter) Await(ctx context.Context, channelID, userID string, timeout time.Duration) (reply string, ok bool) {
	key := promptKey{channelID, userID}
	ch := make(chan string, 1)

	p.mu.Lock()
	p.waiters[key] = ch
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply = <-ch:
		return reply, true
	case <-timer.C:
	case <-ctx.Done():
	}

	p.mu.Lock()
	if p.waiters[key] == ch {
		delete(p.waiters, key)
	}
	p.mu.Unlock()

	// A reply may have raced the timeout; the channel is buffered so the
	// sender never blocked.
	select {
	case reply = <-ch:
		return reply, true
	default:
		return "", false
	}
}
