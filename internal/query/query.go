// Package query runs a single asynchronous fetch and exposes its outcome as
// a pending, success or error result.
package query

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is a snapshot of a query. Data is only meaningful on success.
type Result[T any] struct {
	Status    Status
	Data      T
	Err       error
	UpdatedAt time.Time
}

func (r Result[T]) Pending() bool { return r.Status == StatusPending }
func (r Result[T]) OK() bool      { return r.Status == StatusSuccess }

type Fetcher[T any] func(ctx context.Context) (T, error)

var ErrClosed = errors.New("query: closed")

// Query owns one fetch at a time. Results of a superseded or closed fetch
// are dropped.
type Query[T any] struct {
	key      string
	fetch    Fetcher[T]
	cache    *Cache
	onSettle func(Result[T])

	mu      sync.Mutex
	result  Result[T]
	ctx     context.Context
	cancel  context.CancelFunc
	gen     uint64
	settled chan struct{}
	started bool
	closed  bool
	done    chan struct{}

	// held while onSettle runs so Close can wait out an in-flight callback
	notifyMu sync.Mutex
}

// New creates an idle query. cache and onSettle may be nil. onSettle runs on
// the fetch goroutine and must not call Close.
func New[T any](key string, fetch Fetcher[T], cache *Cache, onSettle func(Result[T])) *Query[T] {
	return &Query[T]{
		key:      key,
		fetch:    fetch,
		cache:    cache,
		onSettle: onSettle,
		settled:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (q *Query[T]) Key() string { return q.key }

// Start launches the first fetch. A cached value settles the query at once
// without touching the fetcher. Start never blocks.
func (q *Query[T]) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.ctx, q.cancel = context.WithCancel(ctx)

	if v, ok := q.cache.Get(q.key); ok {
		if data, ok := v.(T); ok {
			q.result = Result[T]{Status: StatusSuccess, Data: data, UpdatedAt: time.Now()}
			res := q.result
			close(q.settled)
			q.mu.Unlock()
			q.notify(res)
			return
		}
	}

	gen := q.gen
	q.mu.Unlock()

	go q.run(gen)
}

// Refetch drops the cached value and fetches again. The previous data stays
// visible while the new fetch is pending.
func (q *Query[T]) Refetch() {
	q.mu.Lock()
	if !q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.cache.Invalidate(q.key)
	q.gen++
	gen := q.gen
	if q.result.Status != StatusPending {
		q.settled = make(chan struct{})
	}
	q.result.Status = StatusPending
	q.result.Err = nil
	q.mu.Unlock()

	go q.run(gen)
}

func (q *Query[T]) run(gen uint64) {
	q.mu.Lock()
	ctx := q.ctx
	q.mu.Unlock()

	data, err := q.fetch(ctx)

	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		return
	}
	if err != nil {
		q.result = Result[T]{Status: StatusError, Data: q.result.Data, Err: err, UpdatedAt: time.Now()}
	} else {
		q.result = Result[T]{Status: StatusSuccess, Data: data, UpdatedAt: time.Now()}
		q.cache.Set(q.key, data)
	}
	res := q.result
	close(q.settled)
	q.mu.Unlock()

	q.notify(res)
}

func (q *Query[T]) notify(res Result[T]) {
	if q.onSettle == nil {
		return
	}
	q.notifyMu.Lock()
	defer q.notifyMu.Unlock()

	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return
	}
	q.onSettle(res)
}

func (q *Query[T]) Result() Result[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.result
}

// Wait blocks until the current fetch settles, the query is closed or ctx is
// done.
func (q *Query[T]) Wait(ctx context.Context) (Result[T], error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Result[T]{}, ErrClosed
	}
	settled := q.settled
	q.mu.Unlock()

	select {
	case <-settled:
		return q.Result(), nil
	case <-q.done:
		return q.Result(), ErrClosed
	case <-ctx.Done():
		return q.Result(), ctx.Err()
	}
}

// Close cancels the in-flight fetch. No callback runs after Close returns.
func (q *Query[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()

	q.notifyMu.Lock()
	q.notifyMu.Unlock() //nolint:staticcheck // barrier for an in-flight onSettle
}
