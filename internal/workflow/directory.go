package workflow

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/pubsub"
	"github.com/naveenspark/roster/internal/tracing"
	"github.com/naveenspark/roster/pkg/client"
	"github.com/naveenspark/roster/pkg/domain"
)

// DirectoryUpdate is published for every snapshot of the directory. When Err
// is set the feed has stopped.
type DirectoryUpdate struct {
	Directory domain.Directory
	Err       error
}

// Feed turns the store subscription into assembled directories on a broker.
type Feed struct {
	svc    *Service
	broker *pubsub.Broker[DirectoryUpdate]

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	gen     int
	last    *DirectoryUpdate
}

// NewFeed creates a stopped feed.
func (s *Service) NewFeed() *Feed {
	return &Feed{svc: s, broker: pubsub.NewBroker[DirectoryUpdate]()}
}

// Subscribe returns a channel of updates. See pubsub.Broker.Subscribe.
func (f *Feed) Subscribe(ctx context.Context) <-chan pubsub.Event[DirectoryUpdate] {
	return f.broker.Subscribe(ctx)
}

// Last returns the most recent update, if any.
func (f *Feed) Last() (DirectoryUpdate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return DirectoryUpdate{}, false
	}
	return *f.last, true
}

// Running reports whether the feed is subscribed.
func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Start subscribes to the store. Calling Start on a running feed is a no-op;
// after a stream error the feed stops and Start subscribes again.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	snaps, err := f.svc.store.Subscribe(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("workflow.Feed.Start: %w", err)
	}
	f.cancel = cancel
	f.running = true
	f.gen++
	log.Info(log.CatWorkflow, "directory feed started")

	go f.run(ctx, cancel, snaps, f.gen)
	return nil
}

// Stop cancels the subscription and forgets the last update. Snapshots still
// in flight from the cancelled run are dropped.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = nil
	f.running = false
	f.last = nil
	f.gen++
}

// Close stops the feed and closes every subscriber channel.
func (f *Feed) Close() {
	f.Stop()
	f.broker.Close()
}

func (f *Feed) run(ctx context.Context, cancel context.CancelFunc, snaps <-chan client.Snapshot, gen int) {
	defer cancel()
	defer f.stopped(gen)

	for snap := range snaps {
		if snap.Err != nil {
			update := DirectoryUpdate{Err: fmt.Errorf("workflow.Feed: %w", snap.Err)}
			log.ErrorErr(log.CatStream, "directory feed stopped", snap.Err)
			// Mark stopped first so a subscriber can restart from the failure event.
			f.stopped(gen)
			f.publish(gen, pubsub.FailedEvent, update)
			return
		}

		_, span := f.svc.tracer.Start(ctx, tracing.SpanPrefixWorkflow+"directory_snapshot")
		dir := domain.AssembleDirectory(snap.Profiles, f.svc.session.UserID())
		span.AddEvent(tracing.EventSnapshot, trace.WithAttributes(attribute.Int(tracing.AttrCount, len(dir.Entries))))
		tracing.EndSpan(span, nil)

		log.Debug(log.CatWorkflow, "directory snapshot", "entries", len(dir.Entries), "own", dir.Own != nil)
		f.publish(gen, pubsub.UpdatedEvent, DirectoryUpdate{Directory: dir})
	}
}

func (f *Feed) publish(gen int, typ pubsub.EventType, update DirectoryUpdate) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.last = &update
	f.mu.Unlock()
	f.broker.Publish(typ, update)
}

func (f *Feed) stopped(gen int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return
	}
	f.running = false
	f.cancel = nil
}
