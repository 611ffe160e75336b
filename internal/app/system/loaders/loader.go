// Package loaders batches and caches point lookups for the lifetime of a
// single request.
//
// A Loader collects the keys requested by concurrently running resolvers
// into one fetch. The batch window opens with the first uncached key and
// closes after Wait, or as soon as MaxBatch distinct keys are pending.
// Every key is fetched at most once per request: keys that are cached,
// or already part of an in-flight batch, join the existing result.
//
// Results are cached until the Loader is discarded with its request.
// Failed batches are not cached, so a later Load retries.
package loaders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Defaults applied to zero Config fields.
const (
	DefaultWait     = 2 * time.Millisecond
	DefaultMaxBatch = 100
	DefaultTimeout  = 5 * time.Second
)

// FetchFunc loads the records for keys. Keys with no record are simply
// absent from the returned map; they resolve to the zero value.
type FetchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Config tunes a Loader.
type Config struct {
	Name     string        // metric and log label
	Wait     time.Duration // how long a batch stays open after its first key
	MaxBatch int           // dispatch early once this many keys are pending
	Timeout  time.Duration // deadline for one fetch round-trip
	Log      *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Wait <= 0 {
		c.Wait = DefaultWait
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = DefaultMaxBatch
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	return c
}

// Loader is a request-scoped batching cache. The zero value is not usable;
// create one with New.
type Loader[K comparable, V any] struct {
	base  context.Context
	fetch FetchFunc[K, V]
	cfg   Config

	mu       sync.Mutex
	cache    map[K]V
	inflight map[K]*batch[K, V]
	open     *batch[K, V]

	// A batch result is cached only if its key was not cleared while
	// the fetch was running.
	gen   map[K]uint64
	epoch uint64
}

type stamp struct{ epoch, gen uint64 }

type batch[K comparable, V any] struct {
	keys   []K
	stamps map[K]stamp
	once   sync.Once
	done   chan struct{}
	data   map[K]V
	err    error
}

// New returns a Loader whose fetches run under base (normally the request
// context).
func New[K comparable, V any](base context.Context, fetch FetchFunc[K, V], cfg Config) *Loader[K, V] {
	return &Loader[K, V]{
		base:     base,
		fetch:    fetch,
		cfg:      cfg.withDefaults(),
		cache:    map[K]V{},
		inflight: map[K]*batch[K, V]{},
		gen:      map[K]uint64{},
	}
}

// Load returns the record for key, or the zero value when none exists.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.LoadThunk(ctx, key)()
}

// LoadThunk enqueues key without blocking and returns a function that
// waits for the result. Enqueue every key first, then call the thunks, to
// let the keys share one batch.
func (l *Loader[K, V]) LoadThunk(ctx context.Context, key K) func() (V, error) {
	l.mu.Lock()
	if v, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return func() (V, error) { return v, nil }
	}
	b, ok := l.inflight[key]
	if !ok {
		b = l.enqueue(key)
	}
	l.mu.Unlock()

	return func() (V, error) {
		var zero V
		select {
		case <-b.done:
		case <-ctx.Done():
			return zero, apperr.Unavailable(errors.Wrapf(ctx.Err(), "%s: waiting for batch", l.cfg.Name))
		}
		if b.err != nil {
			return zero, b.err
		}
		return b.data[key], nil
	}
}

// enqueue adds key to the open batch, opening one if needed. Must be
// called with l.mu held.
func (l *Loader[K, V]) enqueue(key K) *batch[K, V] {
	b := l.open
	if b == nil {
		b = &batch[K, V]{stamps: map[K]stamp{}, done: make(chan struct{})}
		l.open = b
		time.AfterFunc(l.cfg.Wait, func() { l.dispatch(b) })
	}
	if _, ok := b.stamps[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.stamps[key] = l.stamp(key)
	l.inflight[key] = b
	if len(b.keys) >= l.cfg.MaxBatch {
		l.open = nil
		go l.dispatch(b)
	}
	return b
}

// LoadMany returns one result per key, in the order of keys. Duplicate
// keys share a result. A failed batch fails the whole call.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, error) {
	thunks := make([]func() (V, error), len(keys))
	for i, k := range keys {
		thunks[i] = l.LoadThunk(ctx, k)
	}
	out := make([]V, len(keys))
	for i, th := range thunks {
		v, err := th()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Clear drops key from the cache. Resolvers call it after a mutation so
// the rest of the request sees the new state. A fetch of key already in
// flight still answers its waiters but is not cached, and later loads
// start a new fetch.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	delete(l.cache, key)
	delete(l.inflight, key)
	l.gen[key]++
	l.mu.Unlock()
}

// ClearAll empties the cache and detaches every in-flight fetch.
func (l *Loader[K, V]) ClearAll() {
	l.mu.Lock()
	l.cache = map[K]V{}
	l.inflight = map[K]*batch[K, V]{}
	l.epoch++
	l.mu.Unlock()
}

// stamp must be called with l.mu held.
func (l *Loader[K, V]) stamp(key K) stamp {
	return stamp{epoch: l.epoch, gen: l.gen[key]}
}

// Prime stores v for key unless key is already cached. It reports whether
// v was stored.
func (l *Loader[K, V]) Prime(key K, v V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[key]; ok {
		return false
	}
	l.cache[key] = v
	return true
}

// dispatch runs b exactly once, whichever of the timer or the size limit
// fires first.
func (l *Loader[K, V]) dispatch(b *batch[K, V]) {
	b.once.Do(func() {
		l.mu.Lock()
		if l.open == b {
			l.open = nil
		}
		keys := b.keys
		l.mu.Unlock()

		data, err := l.run(keys)

		l.mu.Lock()
		for _, k := range keys {
			if l.inflight[k] == b {
				delete(l.inflight, k)
			}
			if err == nil && b.stamps[k] == l.stamp(k) {
				l.cache[k] = data[k]
			}
		}
		l.mu.Unlock()

		b.data, b.err = data, err
		close(b.done)
	})
}

type fetchResult[K comparable, V any] struct {
	data map[K]V
	err  error
}

// run performs one fetch under the configured deadline. A fetch that
// ignores its context is abandoned at the deadline.
func (l *Loader[K, V]) run(keys []K) (map[K]V, error) {
	name := l.cfg.Name
	metrics.LoaderBatches.WithLabelValues(name).Inc()
	metrics.LoaderBatchKeys.WithLabelValues(name).Observe(float64(len(keys)))

	ctx, cancel := context.WithTimeout(l.base, l.cfg.Timeout)
	defer cancel()

	ch := make(chan fetchResult[K, V], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fetchResult[K, V]{err: fmt.Errorf("fetch panicked: %v", r)}
			}
		}()
		data, err := l.fetch(ctx, keys)
		ch <- fetchResult[K, V]{data: data, err: err}
	}()

	var res fetchResult[K, V]
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		metrics.LoaderFailures.WithLabelValues(name).Inc()
		l.cfg.Log.Warn("loader batch failed",
			zap.String("loader", name),
			zap.Int("keys", len(keys)),
			zap.Error(res.err))
		return nil, apperr.Unavailable(errors.Wrapf(res.err, "%s: batch of %d keys", name, len(keys)))
	}
	return res.data, nil
}
