package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mazdak/triaged/internal/adapters/repository"
	"github.com/mazdak/triaged/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func queuedItem(id string) model.QueueItem {
	return model.QueueItem{
		ID:     id,
		Event:  model.NewPerceivedEvent("ev-"+id, model.SourceEmail, "content "+id, nil),
		Status: model.StatusQueued,
	}
}

func TestInMemoryStore_CreateGet(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := repository.NewInMemoryStore()
		ctx := context.Background()

		Convey("When an item is created", func() {
			err := store.Create(ctx, queuedItem("item-1"))

			Convey("Then it can be fetched", func() {
				So(err, ShouldBeNil)
				got, err := store.Get(ctx, "item-1")
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "item-1")
				So(got.Status, ShouldEqual, model.StatusQueued)
				So(got.CreatedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And a duplicate ID is rejected", func() {
				So(store.Create(ctx, queuedItem("item-1")), ShouldEqual, repository.ErrExists)
			})
		})

		Convey("When fetching a missing item", func() {
			_, err := store.Get(ctx, "nope")
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When a fetched copy is mutated", func() {
			So(store.Create(ctx, queuedItem("item-2")), ShouldBeNil)
			got, _ := store.Get(ctx, "item-2")
			got.Status = model.StatusProcessed
			got.Event.Content = "tampered"

			Convey("Then the stored item is unaffected", func() {
				fresh, _ := store.Get(ctx, "item-2")
				So(fresh.Status, ShouldEqual, model.StatusQueued)
				So(fresh.Event.Content, ShouldEqual, "content item-2")
			})
		})
	})
}

func TestInMemoryStore_Transition(t *testing.T) {
	Convey("Given a store with a queued item", t, func() {
		store := repository.NewInMemoryStore()
		ctx := context.Background()
		So(store.Create(ctx, queuedItem("item-1")), ShouldBeNil)

		Convey("When moving along a legal edge", func() {
			err := store.Transition(ctx, "item-1", model.StatusQueued, model.StatusAnalyzing, nil)

			Convey("Then the status changes", func() {
				So(err, ShouldBeNil)
				got, _ := store.Get(ctx, "item-1")
				So(got.Status, ShouldEqual, model.StatusAnalyzing)
			})
		})

		Convey("When the current status does not match from", func() {
			err := store.Transition(ctx, "item-1", model.StatusAnalyzing, model.StatusProcessed, nil)
			So(err, ShouldEqual, repository.ErrConflict)
		})

		Convey("When the edge is not part of the state machine", func() {
			err := store.Transition(ctx, "item-1", model.StatusQueued, model.StatusProcessed, nil)
			So(err, ShouldEqual, repository.ErrIllegal)
		})

		Convey("When the item does not exist", func() {
			err := store.Transition(ctx, "ghost", model.StatusQueued, model.StatusAnalyzing, nil)
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When mutate runs inside the swap", func() {
			err := store.Transition(ctx, "item-1", model.StatusQueued, model.StatusAnalyzing, func(it *model.QueueItem) {
				it.Attempts++
				it.LastError = ""
			})
			So(err, ShouldBeNil)
			got, _ := store.Get(ctx, "item-1")
			So(got.Attempts, ShouldEqual, 1)
		})

		Convey("When two writers race for the same edge", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 2)
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- store.Transition(ctx, "item-1", model.StatusQueued, model.StatusAnalyzing, nil)
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then exactly one wins", func() {
				won, lost := 0, 0
				for err := range errs {
					if err == nil {
						won++
					} else {
						So(err, ShouldEqual, repository.ErrConflict)
						lost++
					}
				}
				So(won, ShouldEqual, 1)
				So(lost, ShouldEqual, 1)
			})
		})
	})
}

func TestInMemoryStore_Update(t *testing.T) {
	Convey("Given a store with an item", t, func() {
		store := repository.NewInMemoryStore()
		ctx := context.Background()
		So(store.Create(ctx, queuedItem("item-1")), ShouldBeNil)

		Convey("When updating bookkeeping fields", func() {
			err := store.Update(ctx, "item-1", func(it *model.QueueItem) {
				it.Attempts = 2
				it.LastError = "timeout"
			})

			Convey("Then the fields persist", func() {
				So(err, ShouldBeNil)
				got, _ := store.Get(ctx, "item-1")
				So(got.Attempts, ShouldEqual, 2)
				So(got.LastError, ShouldEqual, "timeout")
			})
		})

		Convey("When an update tries to smuggle a status change", func() {
			err := store.Update(ctx, "item-1", func(it *model.QueueItem) {
				it.Status = model.StatusProcessed
			})

			Convey("Then the status is preserved", func() {
				So(err, ShouldBeNil)
				got, _ := store.Get(ctx, "item-1")
				So(got.Status, ShouldEqual, model.StatusQueued)
			})
		})

		Convey("When the item does not exist", func() {
			err := store.Update(ctx, "ghost", func(*model.QueueItem) {})
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})
}

func TestInMemoryStore_Listing(t *testing.T) {
	Convey("Given a store with items created over time", t, func() {
		now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
		clock := func() time.Time {
			now = now.Add(time.Second)
			return now
		}
		store := repository.NewInMemoryStore(repository.WithClock(clock))
		ctx := context.Background()

		So(store.Create(ctx, queuedItem("old")), ShouldBeNil)
		So(store.Create(ctx, queuedItem("mid")), ShouldBeNil)
		So(store.Create(ctx, queuedItem("new")), ShouldBeNil)
		So(store.Transition(ctx, "mid", model.StatusQueued, model.StatusAnalyzing, nil), ShouldBeNil)

		Convey("When listing everything", func() {
			items, err := store.List(ctx)

			Convey("Then items come back newest first", func() {
				So(err, ShouldBeNil)
				So(items, ShouldHaveLength, 3)
				So(items[0].ID, ShouldEqual, "new")
				So(items[2].ID, ShouldEqual, "old")
			})
		})

		Convey("When listing by status", func() {
			queued, err := store.ListByStatus(ctx, model.StatusQueued)
			So(err, ShouldBeNil)
			So(queued, ShouldHaveLength, 2)

			analyzing, err := store.ListByStatus(ctx, model.StatusAnalyzing)
			So(err, ShouldBeNil)
			So(analyzing, ShouldHaveLength, 1)
			So(analyzing[0].ID, ShouldEqual, "mid")
		})

		Convey("When counting by status", func() {
			counts := store.CountByStatus(ctx)
			So(counts[model.StatusQueued], ShouldEqual, 2)
			So(counts[model.StatusAnalyzing], ShouldEqual, 1)
			So(counts[model.StatusProcessed], ShouldEqual, 0)
		})
	})
}
