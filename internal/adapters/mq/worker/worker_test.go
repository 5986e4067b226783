package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/skillswap/internal/adapters/mq/queue"
	"github.com/okian/skillswap/internal/adapters/mq/worker"
	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/scoring"
	logging "github.com/okian/skillswap/pkg/logger"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

func seededStore(ctx context.Context) *repository.MemoryStore {
	fx, err := repository.LoadFixtures("../../repository/testdata/fixtures.yaml")
	if err != nil {
		panic(err)
	}
	store := repository.NewMemoryStore(ctx)
	if err := store.Seed(ctx, fx); err != nil {
		panic(err)
	}
	return store
}

func event(id, skill string) model.ListingEvent {
	return model.ListingEvent{EventID: id, MemberID: "m-ada", SkillName: skill, Kind: model.ListingUpdated, TS: time.Now()}
}

type failingMembers struct{ err error }

func (f failingMembers) FindActiveMembers(context.Context, query.MemberFilter) ([]model.Member, error) {
	return nil, f.err
}

type recordingWriter struct {
	mu     sync.Mutex
	calls  map[string]int
	err    error
	writes atomic.Int64
}

func (r *recordingWriter) UpdateSkillStats(_ context.Context, name string, _ model.SkillStats, _ float64) error {
	r.writes.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[name]++
	return r.err
}

func TestInMemoryWorker_Process(t *testing.T) {
	convey.Convey("Given a worker over a seeded memory store", t, func() {
		ctx := context.Background()
		store := seededStore(ctx)
		defer store.Close()
		w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), store, scoring.NewInMemoryScorer(), store)

		convey.Convey("When a listing event names a catalog skill", func() {
			outcome, err := w.Process(ctx, event("evt-1", "guitar"))

			convey.Convey("Then the skill's stats are recomputed from members and written back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeUpdated)

				sk, err := store.FindSkillByName(ctx, "Guitar")
				convey.So(err, convey.ShouldBeNil)
				convey.So(sk.Stats, convey.ShouldResemble, model.SkillStats{
					TotalUsers:    1,
					LearningUsers: 1,
					AverageRating: 4.9,
					TotalSessions: 210,
					TotalReviews:  70,
				})
				// 1 + 210*0.05 + 70*0.1 + 4.9*5
				convey.So(sk.PopularityScore, convey.ShouldEqual, 43)
			})
		})

		convey.Convey("When the listing is counted under differently cased names", func() {
			_, err := w.Process(ctx, event("evt-2", "JavaScript"))
			convey.So(err, convey.ShouldBeNil)

			sk, err := store.FindSkillByName(ctx, "javascript")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every active member is counted once and inactive ones are ignored", func() {
				convey.So(sk.Stats.TotalUsers, convey.ShouldEqual, 3)
				convey.So(sk.Stats.TeachingUsers, convey.ShouldEqual, 2)
				convey.So(sk.Stats.LearningUsers, convey.ShouldEqual, 1)
				convey.So(sk.Stats.AverageRating, convey.ShouldEqual, 4.55)
			})
		})

		convey.Convey("When a listing event names an uncataloged skill", func() {
			outcome, err := w.Process(ctx, event("evt-3", "Underwater Welding"))

			convey.Convey("Then it is skipped without error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeSkipped)
			})
		})
	})

	convey.Convey("Given failing collaborators", t, func() {
		ctx := context.Background()
		boom := errors.New("boom")

		convey.Convey("When the member read fails", func() {
			writer := &recordingWriter{}
			w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), failingMembers{err: boom}, scoring.NewInMemoryScorer(), writer)
			outcome, err := w.Process(ctx, event("evt-1", "Guitar"))

			convey.Convey("Then nothing is written and the error surfaces", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeError)
				convey.So(writer.writes.Load(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the write fails", func() {
			store := seededStore(ctx)
			defer store.Close()
			writer := &recordingWriter{err: boom}
			w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), store, scoring.NewInMemoryScorer(), writer)
			outcome, err := w.Process(ctx, event("evt-1", "Guitar"))

			convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			convey.So(outcome, convey.ShouldEqual, worker.OutcomeError)
		})
	})
}

func TestInMemoryWorker_Lifecycle(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		ctx := context.Background()
		store := seededStore(ctx)
		defer store.Close()
		q := queue.NewInMemoryQueue()
		writer := &recordingWriter{}
		w := worker.NewInMemoryWorker(q, store, scoring.NewInMemoryScorer(), writer, worker.WithName("test-worker"))
		go w.Run(ctx)

		convey.Convey("When events are queued and the queue closes", func() {
			q.Enqueue(ctx, event("evt-1", "Guitar"))
			q.Enqueue(ctx, event("evt-2", "Java"))
			_ = q.Close()

			convey.Convey("Then the worker drains the queue and exits", func() {
				select {
				case <-w.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("worker did not exit")
				}
				convey.So(writer.writes.Load(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When it is shut down", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		ctx := context.Background()
		store := seededStore(ctx)
		defer store.Close()
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		writer := &recordingWriter{}
		pool := worker.NewPool(4, q, store, scoring.NewInMemoryScorer(), writer)
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		convey.Convey("When many events are queued before shutdown", func() {
			for i := 0; i < 200; i++ {
				skill := "Guitar"
				if i%2 == 0 {
					skill = "Java"
				}
				convey.So(q.Enqueue(ctx, event("evt", skill)), convey.ShouldBeTrue)
			}

			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then every event is processed exactly once", func() {
				convey.So(pool.Processed(), convey.ShouldEqual, 200)
				convey.So(writer.calls["Guitar"], convey.ShouldEqual, 100)
				convey.So(writer.calls["Java"], convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When it is stopped", func() {
			pool.Stop()
			pool.Stop()

			convey.Convey("Then the queue stays open for a later pool", func() {
				convey.So(q.IsClosed(), convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given a worker count below one", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), failingMembers{}, scoring.NewInMemoryScorer(), &recordingWriter{})
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}
