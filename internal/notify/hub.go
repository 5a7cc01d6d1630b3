package notify

import (
	"context"
	"errors"
	"sync"

	"sleepywoodpecker/swing-platform/internal/swing"

	"go.uber.org/zap"
)

const DefaultBufferSize = 32

var (
	ErrAlreadyConnected = errors.New("a companion is already connected")
	ErrSubscriberBehind = errors.New("companion is not keeping up")
	ErrHubClosed        = errors.New("notify hub closed")
)

// Hub is the single-companion push channel. It implements
// swing.NotifyChannel and reports connects and disconnects on links.
type Hub struct {
	// linkMu keeps link events in the same order as subscription changes
	linkMu     sync.Mutex
	mu         sync.Mutex
	sub        chan string
	links      chan<- swing.LinkEvent
	bufferSize int
	logger     *zap.Logger
	done       chan struct{}
	closeOnce  sync.Once
}

func NewHub(links chan<- swing.LinkEvent, bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		links:      links,
		bufferSize: bufferSize,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Close ends any open subscription and stops link signalling.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Done is closed once the hub is closed.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Notify queues message for the connected companion without blocking.
func (h *Hub) Notify(message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sub == nil {
		return swing.ErrChannelDisconnected
	}

	select {
	case h.sub <- message:
		return nil
	default:
		return ErrSubscriberBehind
	}
}

func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.sub != nil
}

// Subscribe attaches the companion. Only one may be attached at a time.
func (h *Hub) Subscribe(ctx context.Context) (<-chan string, error) {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()

	h.mu.Lock()
	if h.sub != nil {
		h.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	select {
	case <-h.done:
		h.mu.Unlock()
		return nil, ErrHubClosed
	default:
	}
	sub := make(chan string, h.bufferSize)
	h.sub = sub
	h.mu.Unlock()

	h.logger.Info("[notify] companion subscribed")
	h.signal(ctx, swing.LinkConnected)
	return sub, nil
}

// Unsubscribe detaches sub. Messages still queued are dropped.
func (h *Hub) Unsubscribe(sub <-chan string) {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()

	h.mu.Lock()
	if h.sub == nil || (<-chan string)(h.sub) != sub {
		h.mu.Unlock()
		return
	}
	h.sub = nil
	h.mu.Unlock()

	h.logger.Info("[notify] companion unsubscribed, advertising again")
	// the request context is already done here; the sampler must still hear it
	h.signal(context.Background(), swing.LinkDisconnected)
}

func (h *Hub) signal(ctx context.Context, link swing.LinkEvent) {
	if h.links == nil {
		return
	}
	select {
	case h.links <- link:
	case <-h.done:
	case <-ctx.Done():
		h.logger.Warn("[notify] link event dropped", zap.Stringer("link", link))
	}
}
