package eventbridge

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	defaultSubscriberCapacity = 32
	defaultBacklogLimit       = 16
	defaultDedupeWindow       = 256
)

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router hands bridge commands to topic subscribers with buffering,
// deduplication by request id, and bounded channels. Commands that arrive
// before anyone subscribes wait in a per-topic backlog.
type Router struct {
	mu           sync.RWMutex
	subscribers  map[string]map[*subscriber]struct{}
	backlog      map[string][]Command
	recentIDs    map[string]struct{}
	recentOrder  []string
	channelSize  int
	backlogLimit int
	dedupeWindow int
	logger       *zap.Logger
}

// Subscription represents an active topic subscription.
type Subscription struct {
	Commands <-chan Command
	cancel   func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router with sane defaults.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		subscribers:  map[string]map[*subscriber]struct{}{},
		backlog:      map[string][]Command{},
		recentIDs:    map[string]struct{}{},
		recentOrder:  make([]string, 0, defaultDedupeWindow),
		channelSize:  defaultSubscriberCapacity,
		backlogLimit: defaultBacklogLimit,
		dedupeWindow: defaultDedupeWindow,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterWithLogger injects a logger for drop diagnostics.
func RouterWithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// RouterWithSubscriberCapacity overrides the buffered channel size per subscriber.
func RouterWithSubscriberCapacity(cap int) RouterOption {
	return func(r *Router) {
		if cap > 0 {
			r.channelSize = cap
		}
	}
}

// RouterWithBacklogLimit overrides the backlog size for pre-subscription buffering.
func RouterWithBacklogLimit(limit int) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.backlogLimit = limit
		}
	}
}

// RouterWithDedupeWindow controls how many recent request IDs are retained.
func RouterWithDedupeWindow(size int) RouterOption {
	return func(r *Router) {
		if size > 0 {
			r.dedupeWindow = size
		}
	}
}

// Subscribe registers for commands on topic.
func (r *Router) Subscribe(topic string) Subscription {
	key := normalizeTopic(topic)
	sub := newSubscriber(r.channelSize, r.logger)
	var backlog []Command
	r.mu.Lock()
	if r.subscribers[key] == nil {
		r.subscribers[key] = map[*subscriber]struct{}{}
	}
	r.subscribers[key][sub] = struct{}{}
	if existing := r.backlog[key]; len(existing) > 0 {
		backlog = append(backlog, existing...)
		delete(r.backlog, key)
	}
	r.mu.Unlock()
	for _, cmd := range backlog {
		sub.deliver(cmd)
	}
	return Subscription{
		Commands: sub.channel(),
		cancel: func() {
			r.removeSubscriber(key, sub)
		},
	}
}

// HandleCommand satisfies the CommandProcessor interface.
func (r *Router) HandleCommand(cmd Command) error {
	r.Route(cmd)
	return nil
}

// Route delivers cmd to subscribers or buffers it when no subscriber exists.
func (r *Router) Route(cmd Command) {
	if cmd.ID != "" && r.isDuplicate(cmd.ID) {
		return
	}
	key := normalizeTopic(cmd.Topic)
	if key == "" {
		return
	}
	r.mu.RLock()
	subs := r.snapshotSubscribers(key)
	r.mu.RUnlock()
	if len(subs) == 0 {
		r.bufferCommand(key, cmd)
		return
	}
	for _, sub := range subs {
		sub.deliver(cmd)
	}
}

func (r *Router) snapshotSubscribers(key string) []*subscriber {
	live := r.subscribers[key]
	if len(live) == 0 {
		return nil
	}
	items := make([]*subscriber, 0, len(live))
	for sub := range live {
		items = append(items, sub)
	}
	return items
}

func (r *Router) removeSubscriber(key string, sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs := r.subscribers[key]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(r.subscribers, key)
		}
	}
	sub.close()
}

func (r *Router) bufferCommand(key string, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	queue := r.backlog[key]
	if len(queue) >= r.backlogLimit {
		queue = queue[1:]
		r.logger.Warn("eventbridge backlog drop", zap.String("topic", key), zap.Int("limit", r.backlogLimit))
	}
	queue = append(queue, cmd)
	r.backlog[key] = queue
}

func (r *Router) isDuplicate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recentIDs[id]; ok {
		return true
	}
	r.recentIDs[id] = struct{}{}
	r.recentOrder = append(r.recentOrder, id)
	if len(r.recentOrder) > r.dedupeWindow {
		oldest := r.recentOrder[0]
		r.recentOrder = r.recentOrder[1:]
		delete(r.recentIDs, oldest)
	}
	return false
}

func normalizeTopic(topic string) string {
	return strings.TrimSpace(strings.ToLower(topic))
}

type subscriber struct {
	ch      chan Command
	logger  *zap.Logger
	closed  bool
	closeMu sync.Mutex
}

func newSubscriber(capacity int, logger *zap.Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Command, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Command {
	return s.ch
}

func (s *subscriber) deliver(cmd Command) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- cmd:
		return
	default:
		oldest := <-s.ch
		if shouldDropOldest(oldest, cmd) {
			s.logDrop(oldest, "queue overflow")
			s.ch <- cmd
		} else {
			s.ch <- oldest
			s.logDrop(cmd, "queue overflow:incoming")
		}
	}
}

func (s *subscriber) logDrop(cmd Command, reason string) {
	s.logger.Warn("eventbridge dropped command",
		zap.String("request_id", cmd.ID),
		zap.String("tab", string(cmd.Tab)),
		zap.String("reason", reason))
}

func (s *subscriber) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// A command carrying a payload outranks a bare tab switch; between equals
// the oldest goes.
func shouldDropOldest(oldest, incoming Command) bool {
	oldestCarries := oldest.Payload != nil
	incomingCarries := incoming.Payload != nil
	if oldestCarries && !incomingCarries {
		return false
	}
	return true
}
