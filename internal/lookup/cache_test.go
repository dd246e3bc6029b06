package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrLoadCachesSuccess(t *testing.T) {
	c := New[int64, string](4, time.Minute)
	var calls int32
	load := func(_ context.Context, id int64) (string, error) {
		atomic.AddInt32(&calls, 1)
		return fmt.Sprintf("club-%d", id), nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(context.Background(), 1, load)
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
		if v != "club-1" {
			t.Fatalf("got %q, want club-1", v)
		}
	}
	if calls != 1 {
		t.Fatalf("loader ran %d times, want 1", calls)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[int64, string](4, time.Minute)
	fail := true
	load := func(context.Context, int64) (string, error) {
		if fail {
			return "", errors.New("offline")
		}
		return "ok", nil
	}

	if _, err := c.GetOrLoad(context.Background(), 9, load); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d, want 0 after failed load", c.Len())
	}
	fail = false
	if v, err := c.GetOrLoad(context.Background(), 9, load); err != nil || v != "ok" {
		t.Fatalf("GetOrLoad = %q, %v", v, err)
	}
}

func TestBoundedSize(t *testing.T) {
	c := New[int, int](2, time.Minute)
	c.Add(1, 1)
	c.Add(2, 2)
	c.Add(3, 3)

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Fatalf("oldest entry was not evicted")
	}
}

func TestExpiry(t *testing.T) {
	c := New[int, int](2, 20*time.Millisecond)
	c.Add(1, 1)
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get(1); ok {
		t.Fatalf("entry survived its ttl")
	}
}

func TestConcurrentMissesShareLoad(t *testing.T) {
	c := New[int, int](8, time.Minute)
	release := make(chan struct{})
	var calls int32
	load := func(context.Context, int) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.GetOrLoad(context.Background(), 1, load); err != nil || v != 42 {
				t.Errorf("GetOrLoad = %d, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n < 1 || n > 5 {
		t.Fatalf("loader calls = %d", n)
	}
}

func TestRemoveAndPurge(t *testing.T) {
	c := New[string, int](0, 0)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a still present after Remove")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("len = %d after Purge", c.Len())
	}
}

func TestRemoveDuringLoadIsNotOverwritten(t *testing.T) {
	for _, tt := range []struct {
		name       string
		invalidate func(c *Cache[int64, string])
	}{
		{"remove", func(c *Cache[int64, string]) { c.Remove(7) }},
		{"purge", func(c *Cache[int64, string]) { c.Purge() }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := New[int64, string](4, time.Minute)
			started := make(chan struct{})
			release := make(chan struct{})
			done := make(chan string)

			go func() {
				v, _ := c.GetOrLoad(context.Background(), 7, func(context.Context, int64) (string, error) {
					close(started)
					<-release
					return "old name", nil
				})
				done <- v
			}()

			<-started
			tt.invalidate(c)
			close(release)
			if v := <-done; v != "old name" {
				t.Fatalf("in-flight caller got %q", v)
			}

			if v, ok := c.Get(7); ok {
				t.Fatalf("stale value %q cached after invalidation", v)
			}
			v, err := c.GetOrLoad(context.Background(), 7, func(context.Context, int64) (string, error) {
				return "new name", nil
			})
			if err != nil || v != "new name" {
				t.Fatalf("GetOrLoad = %q, %v", v, err)
			}
			if v, _ := c.Get(7); v != "new name" {
				t.Fatalf("cached %q, want new name", v)
			}
		})
	}
}

func TestDistinctKeysDoNotShareLoad(t *testing.T) {
	c := New[any, string](4, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)

	go func() {
		v, _ := c.GetOrLoad(context.Background(), 1, func(context.Context, any) (string, error) {
			close(started)
			<-release
			return "int", nil
		})
		done <- v
	}()
	<-started

	v, err := c.GetOrLoad(context.Background(), "1", func(context.Context, any) (string, error) {
		return "string", nil
	})
	close(release)
	if err != nil || v != "string" {
		t.Fatalf("string key = %q, %v; want its own load", v, err)
	}
	if v := <-done; v != "int" {
		t.Fatalf("int key = %q", v)
	}
}
