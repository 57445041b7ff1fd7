package client

import "sync"

// changeNotifier fans out coalesced "something changed" signals. Each
// subscriber gets a channel with a buffer of one; a slow reader sees at most
// one pending signal and reads current state when it wakes.
type changeNotifier struct {
	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

func newChangeNotifier() *changeNotifier {
	return &changeNotifier{subs: make(map[chan struct{}]struct{})}
}

// Subscribe returns an unsubscribe func and the signal channel. The channel is
// closed on unsubscribe or when the notifier is closed.
func (n *changeNotifier) Subscribe() (func(), <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	if n.closed {
		close(ch)
		return func() {}, ch
	}
	n.subs[ch] = struct{}{}

	unsub := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[ch]; !ok {
			return
		}
		delete(n.subs, ch)
		drainAndClose(ch)
	}
	return unsub, ch
}

func (n *changeNotifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *changeNotifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for ch := range n.subs {
		drainAndClose(ch)
		delete(n.subs, ch)
	}
}

// drainAndClose removes any buffered notifications before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}
