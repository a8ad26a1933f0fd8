package bot

import (
	"sync"

	"fetchbot/internal/filename"
)

// sessionState is the filename negotiation position for one submitter. The
// interactive flow is single-use: Submitted and Cancelled both end it.
type sessionState int

const (
	stateAwaitingLink sessionState = iota
	stateAwaitingChoice
	stateAwaitingCustomName
)

// session is the per-submitter record of an in-progress negotiation. mu
// serializes concurrent messages from the same submitter across a full
// state transition; the bot's map lock is only ever taken inside it, never
// the other way around.
type session struct {
	mu    sync.Mutex
	state sessionState
	url   string
	names filename.Set
}
