package capture

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
)

// OverflowPolicy decides what a bounded Channel does when it is full.
type OverflowPolicy int

const (
	// OverflowBlock makes Send wait for space, applying backpressure to the
	// platform capture goroutine.
	OverflowBlock OverflowPolicy = iota
	// OverflowDropNewest discards the frame being sent.
	OverflowDropNewest
	// OverflowDropOldest discards the oldest queued frame to make room.
	OverflowDropOldest
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowBlock:
		return "block"
	case OverflowDropNewest:
		return "drop-newest"
	case OverflowDropOldest:
		return "drop-oldest"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy maps a configuration name to a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return OverflowBlock, nil
	case "drop-newest":
		return OverflowDropNewest, nil
	case "drop-oldest":
		return OverflowDropOldest, nil
	default:
		return OverflowBlock, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// ChannelOptions configures a Channel.
type ChannelOptions struct {
	// Capacity bounds the queue. Zero means unbounded.
	Capacity int
	Overflow OverflowPolicy
}

// Channel is a FIFO of frames between the capture goroutine and application
// code. Unlike a Go channel, either end may close it: the producer with
// CloseSend, leaving queued frames readable, or a consumer with Close, which
// makes further sends fail.
type Channel struct {
	opts ChannelOptions

	mu         sync.Mutex
	queue      []Frame
	dropped    uint64
	sendClosed bool
	recvClosed bool

	readable chan struct{}
	writable chan struct{}
	sendDone chan struct{}
	recvDone chan struct{}
}

// NewChannel creates an open channel.
func NewChannel(opts ChannelOptions) *Channel {
	if opts.Capacity < 0 {
		opts.Capacity = 0
	}
	return &Channel{
		opts:     opts,
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
		sendDone: make(chan struct{}),
		recvDone: make(chan struct{}),
	}
}

// Send enqueues f. It returns ErrChannelClosed if either end has closed,
// ErrFrameDropped if the overflow policy discarded a frame, or ctx.Err() if
// a blocked send was cancelled.
func (c *Channel) Send(ctx context.Context, f Frame) error {
	for {
		c.mu.Lock()
		if c.recvClosed || c.sendClosed {
			c.mu.Unlock()
			return ErrChannelClosed
		}

		if c.opts.Capacity == 0 || len(c.queue) < c.opts.Capacity {
			c.queue = append(c.queue, f)
			c.mu.Unlock()
			notify(c.readable)
			return nil
		}

		switch c.opts.Overflow {
		case OverflowDropNewest:
			c.dropped++
			c.mu.Unlock()
			return ErrFrameDropped
		case OverflowDropOldest:
			c.queue[0] = Frame{}
			c.queue = append(c.queue[1:], f)
			c.dropped++
			c.mu.Unlock()
			notify(c.readable)
			return ErrFrameDropped
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.recvDone:
		case <-c.writable:
		}
	}
}

// Recv returns the oldest queued frame, blocking until one is available.
// Once the producer has closed and the queue is drained, or after Close, it
// returns ErrChannelClosed.
func (c *Channel) Recv(ctx context.Context) (Frame, error) {
	for {
		f, ok, err := c.TryRecv()
		if ok || err != nil {
			return f, err
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-c.readable:
		case <-c.sendDone:
		case <-c.recvDone:
		}
	}
}

// TryRecv is the non-blocking form of Recv. ok is false when no frame is
// queued yet.
func (c *Channel) TryRecv() (f Frame, ok bool, err error) {
	c.mu.Lock()
	if c.recvClosed {
		c.mu.Unlock()
		return Frame{}, false, ErrChannelClosed
	}
	if len(c.queue) == 0 {
		closed := c.sendClosed
		c.mu.Unlock()
		if closed {
			return Frame{}, false, ErrChannelClosed
		}
		return Frame{}, false, nil
	}

	f = c.queue[0]
	c.queue[0] = Frame{}
	c.queue = c.queue[1:]
	more := len(c.queue) > 0
	c.mu.Unlock()

	notify(c.writable)
	if more {
		// Pass the wakeup on to any other waiting consumer.
		notify(c.readable)
	}
	return f, true, nil
}

// All yields frames until end-of-stream, consumer close or ctx cancellation.
func (c *Channel) All(ctx context.Context) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for {
			f, err := c.Recv(ctx)
			if err != nil {
				return
			}
			if !yield(f) {
				return
			}
		}
	}
}

// CloseSend marks the producer as finished. Queued frames remain readable.
func (c *Channel) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.sendDone)
}

// Close detaches the consumer side. Queued frames are discarded and later
// sends fail with ErrChannelClosed.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recvClosed {
		return
	}
	c.recvClosed = true
	c.queue = nil
	close(c.recvDone)
}

// Len reports the number of queued frames.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Dropped reports how many frames the overflow policy has discarded.
func (c *Channel) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
