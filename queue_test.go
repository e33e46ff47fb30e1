package qdispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTaskQueue(t *testing.T) {
	Convey("Given an empty task queue", t, func() {
		q := NewTaskQueue()

		Convey("Tasks come out in the order they went in", func() {
			for i := range 10 {
				So(q.Push(Task{ID: fmt.Sprint(i)}), ShouldBeNil)
			}
			So(q.Len(), ShouldEqual, 10)

			for i := range 10 {
				task, err := q.Pop(context.Background())
				So(err, ShouldBeNil)
				So(task.ID, ShouldEqual, fmt.Sprint(i))
			}
			So(q.Len(), ShouldEqual, 0)
		})

		Convey("Pop blocks until a task is pushed", func() {
			got := make(chan Task, 1)
			go func() {
				task, _ := q.Pop(context.Background())
				got <- task
			}()

			select {
			case <-got:
				t.Fatal("pop returned before any push")
			case <-time.After(20 * time.Millisecond):
			}

			So(q.Push(Task{ID: "late"}), ShouldBeNil)

			select {
			case task := <-got:
				So(task.ID, ShouldEqual, "late")
			case <-time.After(time.Second):
				t.Fatal("pop never woke up")
			}
		})

		Convey("Pop gives up when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			_, err := q.Pop(ctx)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})

		Convey("After Close", func() {
			So(q.Push(Task{ID: "a"}), ShouldBeNil)
			So(q.Push(Task{ID: "b"}), ShouldBeNil)
			q.Close()

			Convey("Push is refused", func() {
				So(q.Push(Task{ID: "c"}), ShouldEqual, ErrQueueClosed)
				So(q.Closed(), ShouldBeTrue)
			})

			Convey("Queued tasks still drain before ErrQueueClosed", func() {
				a, err := q.Pop(context.Background())
				So(err, ShouldBeNil)
				So(a.ID, ShouldEqual, "a")

				b, err := q.Pop(context.Background())
				So(err, ShouldBeNil)
				So(b.ID, ShouldEqual, "b")

				_, err = q.Pop(context.Background())
				So(err, ShouldEqual, ErrQueueClosed)
			})
		})

		Convey("Close wakes a blocked consumer", func() {
			errs := make(chan error, 1)
			go func() {
				_, err := q.Pop(context.Background())
				errs <- err
			}()

			time.Sleep(10 * time.Millisecond)
			q.Close()

			select {
			case err := <-errs:
				So(err, ShouldEqual, ErrQueueClosed)
			case <-time.After(time.Second):
				t.Fatal("consumer still blocked after close")
			}
		})

		Convey("Remove takes a task out of the middle", func() {
			for _, id := range []string{"a", "b", "c"} {
				So(q.Push(Task{ID: id}), ShouldBeNil)
			}

			removed, ok := q.Remove("b")
			So(ok, ShouldBeTrue)
			So(removed.ID, ShouldEqual, "b")

			_, ok = q.Remove("b")
			So(ok, ShouldBeFalse)

			first, _ := q.Pop(context.Background())
			second, _ := q.Pop(context.Background())
			So(first.ID, ShouldEqual, "a")
			So(second.ID, ShouldEqual, "c")
		})

		Convey("CloseAndDrain hands back what was queued", func() {
			So(q.Push(Task{ID: "x"}), ShouldBeNil)
			So(q.Push(Task{ID: "y"}), ShouldBeNil)

			left := q.CloseAndDrain()
			So(left, ShouldHaveLength, 2)
			So(left[0].ID, ShouldEqual, "x")
			So(q.Len(), ShouldEqual, 0)

			_, err := q.Pop(context.Background())
			So(err, ShouldEqual, ErrQueueClosed)
		})
	})
}
