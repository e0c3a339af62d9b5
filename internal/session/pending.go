package session

import (
	"strconv"
	"sync"

	"github.com/ariavoice/aria-link/internal/protocol"
)

// result is what a waiting caller receives: a decoded response frame or
// the error that ended the wait.
type result struct {
	frame protocol.Frame
	err   error
}

// pendingTable correlates outgoing request ids with their waiting callers.
//
// Every entry is resolved at most once: resolve removes the entry under the
// lock before delivering, so a send-failure callback racing the receive
// loop (or a bulk failAll) can never complete the same caller twice. The
// same mutex covers registration, so no entry can be added to a table that
// is mid-drain.
type pendingTable struct {
	mu      sync.Mutex
	nextSeq int64
	waiting map[string]chan result
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		waiting: make(map[string]chan result),
	}
}

// nextID returns a strictly increasing request identifier.
func (p *pendingTable) nextID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSeq++
	return strconv.FormatInt(p.nextSeq, 10)
}

// register records a waiter for id. Must happen before the frame is handed
// to the transport, closing the race with an early response.
func (p *pendingTable) register(id string) <-chan result {
	ch := make(chan result, 1)
	p.mu.Lock()
	p.waiting[id] = ch
	p.mu.Unlock()
	return ch
}

// resolve removes the waiter for id and delivers res to it. Returns false
// when no waiter was pending, in which case res is discarded.
func (p *pendingTable) resolve(id string, res result) bool {
	p.mu.Lock()
	ch, ok := p.waiting[id]
	if ok {
		delete(p.waiting, id)
	}
	p.mu.Unlock()

	if ok {
		ch <- res
	}
	return ok
}

// remove drops the waiter for id without delivering anything. Used when
// the caller itself gives up (context cancelled).
func (p *pendingTable) remove(id string) bool {
	p.mu.Lock()
	_, ok := p.waiting[id]
	if ok {
		delete(p.waiting, id)
	}
	p.mu.Unlock()
	return ok
}

// failAll resolves every still-pending entry with err and clears the table.
func (p *pendingTable) failAll(err error) {
	p.mu.Lock()
	drained := p.waiting
	p.waiting = make(map[string]chan result)
	p.mu.Unlock()

	for _, ch := range drained {
		ch <- result{err: err}
	}
}

// size returns the number of pending entries.
func (p *pendingTable) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}
