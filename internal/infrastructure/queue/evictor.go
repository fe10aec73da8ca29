package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	deleteTimeout  = 30 * time.Second
)

type eviction struct {
	userID string
	url    string
}

// Evictor deletes replaced assets on a fixed set of workers. Jobs are sharded
// by user id with consistent hashing, so one user's evictions run in the order
// they were submitted.
type Evictor struct {
	host    ports.AssetHost
	log     zerolog.Logger
	workers []chan eviction

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

var _ ports.AssetEvictor = (*Evictor)(nil)

// NewEvictor creates an Evictor with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewEvictor(numWorkers int, host ports.AssetHost, log zerolog.Logger) *Evictor {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	e := &Evictor{
		host:    host,
		log:     log.With().Str("component", "asset_evictor").Logger(),
		workers: make([]chan eviction, numWorkers),
	}
	for i := range e.workers {
		e.workers[i] = make(chan eviction, channelBuffer)
	}
	return e
}

// Start launches all worker goroutines. Workers exit once Stop closes their channel.
// ctx bounds the individual deletions, not the worker lifetime.
func (e *Evictor) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i, ch := range e.workers {
		e.wg.Add(1)
		go e.runWorker(ctx, i, ch)
	}
}

// Evict queues url for deletion. It blocks only while the owning worker's
// channel is full; after Stop it drops the job.
func (e *Evictor) Evict(ctx context.Context, userID, url string) {
	if url == "" {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		metrics.EvictionsTotal.WithLabelValues("dropped").Inc()
		e.log.Warn().Str("user_id", userID).Str("url", url).Msg("evictor stopped, asset left behind")
		return
	}

	idx := e.shardIndex(userID)
	select {
	case e.workers[idx] <- eviction{userID: userID, url: url}:
		metrics.EvictionQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(e.workers[idx])))
	case <-ctx.Done():
		metrics.EvictionsTotal.WithLabelValues("dropped").Inc()
		e.log.Warn().Str("user_id", userID).Str("url", url).Msg("eviction not queued, request cancelled")
	}
}

// Stop refuses new jobs, lets the workers drain what is queued, and waits
// for them to finish.
func (e *Evictor) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	for _, ch := range e.workers {
		close(ch)
	}
	e.mu.Unlock()

	e.wg.Wait()
}

// shardIndex maps a user id deterministically to a worker index.
func (e *Evictor) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(e.workers)))
}

func (e *Evictor) runWorker(ctx context.Context, id int, ch <-chan eviction) {
	defer e.wg.Done()
	worker := strconv.Itoa(id)

	for job := range ch {
		metrics.EvictionQueueDepth.WithLabelValues(worker).Set(float64(len(ch)))

		delCtx, cancel := context.WithTimeout(ctx, deleteTimeout)
		err := e.host.Delete(delCtx, job.url)
		cancel()

		if err != nil {
			metrics.EvictionsTotal.WithLabelValues("error").Inc()
			e.log.Error().Err(err).
				Str("user_id", job.userID).
				Str("url", job.url).
				Int("worker_id", id).
				Msg("asset eviction failed")
			continue
		}
		metrics.EvictionsTotal.WithLabelValues("ok").Inc()
		e.log.Info().Str("user_id", job.userID).Str("url", job.url).Msg("asset evicted")
	}
}
