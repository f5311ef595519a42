package tree

import (
	"context"
	"sync"
)

// Direction of a long running transfer.
type Direction string

const (
	Upload   Direction = "upload"
	Download Direction = "download"
)

// Transfer is one progress report of a transfer.
type Transfer struct {
	Transferred int64
	Total       int64
}

// Progress fans out the transfer events of a progress node.
type Progress struct {
	Direction Direction

	mu          sync.Mutex
	last        Transfer
	done        bool
	subscribers map[int]func(Transfer)
	nextSub     int
}

// Last returns the most recent transfer report.
func (p *Progress) Last() Transfer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Done reports whether the response arrived.
func (p *Progress) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Subscribe calls fn for every transfer report received from now on.
func (p *Progress) Subscribe(fn func(Transfer)) (cancel func()) {
	p.mu.Lock()
	if p.subscribers == nil {
		p.subscribers = make(map[int]func(Transfer))
	}
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

func (p *Progress) publish(t Transfer) {
	p.mu.Lock()
	p.last = t
	subs := make([]func(Transfer), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(t)
	}
}

// ProgressParams describes a transfer placeholder.
type ProgressParams struct {
	ID         string
	Name       string
	Direction  Direction
	Events     <-chan Transfer
	Response   ResponseFunc
	OnResponse ResponseHandler
}

// NewProgressNode builds a transfer placeholder. Unlike future nodes it starts
// its own response immediately and calls OnResponse when it completes; a
// failed response leaves the node in place.
func NewProgressNode(ctx context.Context, p ProgressParams) *Node {
	if p.ID == "" {
		p.ID = NewNodeID()
	}
	n := newNode(p.ID, p.Name, spinnerIcon, KindProgress)
	prog := &Progress{Direction: p.Direction}
	n.Future = &FutureInfo{Response: p.Response, OnResponse: p.OnResponse, progress: prog}

	if p.Events != nil {
		go func() {
			for t := range p.Events {
				prog.publish(t)
			}
		}()
	}
	go func() {
		resp, err := p.Response(ctx)
		prog.mu.Lock()
		prog.done = true
		prog.mu.Unlock()
		if err != nil {
			return
		}
		if p.OnResponse != nil {
			p.OnResponse(resp, n)
		}
	}()
	return n
}
