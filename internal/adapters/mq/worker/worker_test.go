package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/adapters/mq/queue"
	"github.com/okian/aol-b30/internal/adapters/mq/worker"
	logging "github.com/okian/aol-b30/pkg/logger"
)

type recordingInstaller struct {
	mu      sync.Mutex
	names   []string
	active  int
	overlap bool
	fail    map[string]error
	seen    chan string
}

func newRecordingInstaller() *recordingInstaller {
	return &recordingInstaller{fail: map[string]error{}, seen: make(chan string, 16)}
}

func (r *recordingInstaller) Install(_ context.Context, resp host.Best30Response) error {
	r.mu.Lock()
	r.active++
	if r.active > 1 {
		r.overlap = true
	}
	r.names = append(r.names, resp.Username)
	err := r.fail[resp.Username]
	r.mu.Unlock()

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	r.seen <- resp.Username
	return err
}

func wait(t *testing.T, ch <-chan string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d installs", i, n)
		}
	}
}

func TestDispatcher(t *testing.T) {
	convey.Convey("Given a dispatcher over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		inst := newRecordingInstaller()
		d := worker.NewDispatcher(q, inst, worker.WithName("test"), worker.WithLogger(logging.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		d.Start(ctx)
		d.Start(ctx)

		convey.Convey("When several scoreboards arrive they install in order without overlap", func() {
			for _, name := range []string{"a", "b", "c"} {
				convey.So(q.Enqueue(ctx, queue.NewNotification(host.Best30Response{Username: name})), convey.ShouldBeTrue)
			}
			wait(t, inst.seen, 3)

			inst.mu.Lock()
			convey.So(inst.names, convey.ShouldResemble, []string{"a", "b", "c"})
			convey.So(inst.overlap, convey.ShouldBeFalse)
			inst.mu.Unlock()
		})

		convey.Convey("When an install fails the dispatcher keeps going", func() {
			inst.fail["bad"] = errors.New("decode failed")
			q.Enqueue(ctx, queue.NewNotification(host.Best30Response{Username: "bad"}))
			q.Enqueue(ctx, queue.NewNotification(host.Best30Response{Username: "good"}))
			wait(t, inst.seen, 2)

			convey.So(func() bool {
				deadline := time.Now().Add(time.Second)
				for time.Now().Before(deadline) {
					if d.Stats().Processed == 2 {
						return true
					}
					time.Sleep(time.Millisecond)
				}
				return false
			}(), convey.ShouldBeTrue)
			stats := d.Stats()
			convey.So(stats.Failed, convey.ShouldEqual, 1)
			convey.So(stats.LastError, convey.ShouldBeEmpty)
			convey.So(stats.LastID, convey.ShouldNotBeEmpty)
		})

		convey.Convey("When the queue is closed the loop exits", func() {
			convey.So(q.Close(), convey.ShouldBeNil)
			select {
			case <-d.Done():
			case <-time.After(2 * time.Second):
				t.Fatal("dispatcher did not exit")
			}
			convey.So(d.Shutdown(context.Background()), convey.ShouldBeNil)
		})

		convey.Convey("When shut down it stops promptly", func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			convey.So(d.Shutdown(sctx), convey.ShouldBeNil)
			convey.So(d.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}
