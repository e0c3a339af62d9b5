package session

import (
	"sync"
	"testing"
	"time"
)

func TestFrameQueue_BasicPushPop(t *testing.T) {
	q := newFrameQueue[int](10)

	for i := 0; i < 5; i++ {
		if !q.push(i) {
			t.Fatalf("push(%d) returned false", i)
		}
	}

	if q.length() != 5 {
		t.Errorf("length() = %d, want 5", q.length())
	}

	for i := 0; i < 5; i++ {
		val, ok := q.tryPop()
		if !ok {
			t.Fatalf("tryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}

	if q.length() != 0 {
		t.Errorf("length() = %d, want 0", q.length())
	}
}

func TestFrameQueue_GrowAt70Percent(t *testing.T) {
	q := newFrameQueue[int](10)

	for i := 0; i < 7; i++ {
		q.push(i)
	}

	st := q.stats()
	if st.Capacity <= 10 {
		t.Errorf("Capacity = %d, expected growth after 70%% fill", st.Capacity)
	}
	if st.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", st.ResizeCount)
	}

	// Order survives the resize.
	for i := 0; i < 7; i++ {
		val, ok := q.tryPop()
		if !ok {
			t.Fatalf("tryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}
}

func TestFrameQueue_MultipleGrows(t *testing.T) {
	q := newFrameQueue[int](4)

	for i := 0; i < 100; i++ {
		if !q.push(i) {
			t.Fatalf("push(%d) returned false", i)
		}
	}

	st := q.stats()
	if st.Count != 100 {
		t.Errorf("Count = %d, want 100", st.Count)
	}
	if st.ResizeCount < 3 {
		t.Errorf("ResizeCount = %d, expected at least 3 resizes", st.ResizeCount)
	}

	for i := 0; i < 100; i++ {
		val, ok := q.tryPop()
		if !ok {
			t.Fatalf("tryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}
}

func TestFrameQueue_BlockingPop(t *testing.T) {
	q := newFrameQueue[int](10)

	received := make(chan int, 1)
	go func() {
		val, ok := q.pop()
		if ok {
			received <- val
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.push(42)

	select {
	case val := <-received:
		if val != 42 {
			t.Errorf("popped %d, want 42", val)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked pop never returned")
	}
}

func TestFrameQueue_CloseWakesPoppers(t *testing.T) {
	q := newFrameQueue[int](10)

	done := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.close()

	select {
	case ok := <-done:
		if ok {
			t.Error("pop on closed empty queue returned true")
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake on close")
	}

	if q.push(1) {
		t.Error("push after close returned true")
	}
}

func TestFrameQueue_DrainAfterClose(t *testing.T) {
	q := newFrameQueue[int](10)

	q.push(1)
	q.push(2)
	q.close()

	for want := 1; want <= 2; want++ {
		val, ok := q.pop()
		if !ok || val != want {
			t.Fatalf("pop = (%d, %v), want (%d, true)", val, ok, want)
		}
	}
	if _, ok := q.pop(); ok {
		t.Error("pop on drained closed queue returned true")
	}
}

func TestFrameQueue_ConcurrentProducers(t *testing.T) {
	q := newFrameQueue[int](8)

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.push(i)
			}
		}()
	}
	wg.Wait()

	if got := q.length(); got != producers*perProducer {
		t.Errorf("length() = %d, want %d", got, producers*perProducer)
	}
}
