package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLRU(t *testing.T) {
	Convey("Given an LRU of size 2", t, func() {
		c := NewLRU[int](2, time.Minute)

		Convey("When entries are set and read", func() {
			c.Set("a", 1)
			c.Set("b", 2)
			v, ok := c.Get("a")

			Convey("Then they are returned", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 1)
				So(c.Len(), ShouldEqual, 2)
			})

			Convey("And a third entry evicts the least recently used", func() {
				c.Set("c", 3)
				_, okB := c.Get("b")
				_, okA := c.Get("a")
				So(okB, ShouldBeFalse)
				So(okA, ShouldBeTrue)
				So(c.Len(), ShouldEqual, 2)
			})
		})

		Convey("When a key is overwritten", func() {
			c.Set("a", 1)
			c.Set("a", 10)
			v, _ := c.Get("a")

			Convey("Then the latest value wins without growing", func() {
				So(v, ShouldEqual, 10)
				So(c.Len(), ShouldEqual, 1)
			})
		})

		Convey("When an entry outlives the TTL", func() {
			now := time.Now()
			c.now = func() time.Time { return now }
			c.Set("a", 1)
			c.now = func() time.Time { return now.Add(2 * time.Minute) }
			_, ok := c.Get("a")

			Convey("Then it is a miss and is dropped", func() {
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 0)
			})
		})

		Convey("When deleting and clearing", func() {
			c.Set("a", 1)
			c.Set("b", 2)
			c.Delete("a")
			So(c.Len(), ShouldEqual, 1)
			c.Clear()
			So(c.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given non-positive size and ttl", t, func() {
		c := NewLRU[string](0, 0)
		So(c.maxSize, ShouldEqual, defaultSize)
		So(c.ttl, ShouldEqual, defaultTTL)
	})
}

func TestMemoryConcurrency(t *testing.T) {
	Convey("Given a memory cache under concurrent use", t, func() {
		ctx := context.Background()
		m := NewMemory(64, time.Minute)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 200; j++ {
					key := fmt.Sprintf("k%d", (i+j)%100)
					m.Set(ctx, key, []byte(key))
					if v, ok := m.Get(ctx, key); ok && string(v) != key {
						t.Errorf("key %s returned %s", key, v)
					}
				}
			}(i)
		}
		wg.Wait()

		So(m.Len(), ShouldBeLessThanOrEqualTo, 64)
		So(m.Purge(ctx), ShouldBeNil)
		So(m.Len(), ShouldEqual, 0)
	})
}

func TestMemoryGeneration(t *testing.T) {
	Convey("Given a memory cache", t, func() {
		ctx := context.Background()
		m := NewMemory(8, time.Minute)

		gen, err := m.Generation(ctx)
		So(err, ShouldBeNil)
		So(gen, ShouldEqual, 0)

		Convey("When it is purged", func() {
			m.Set(ctx, "summary@0", []byte("old"))
			So(m.Purge(ctx), ShouldBeNil)
			So(m.Purge(ctx), ShouldBeNil)

			Convey("Then the generation advances once per purge and entries are gone", func() {
				gen, err := m.Generation(ctx)
				So(err, ShouldBeNil)
				So(gen, ShouldEqual, 2)
				So(m.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given cache settings", t, func() {
		ctx := context.Background()

		Convey("Memory is the default", func() {
			c, err := New(ctx, Settings{})
			So(err, ShouldBeNil)
			_, ok := c.(*Memory)
			So(ok, ShouldBeTrue)
		})

		Convey("None caches nothing", func() {
			c, err := New(ctx, Settings{Backend: BackendNone})
			So(err, ShouldBeNil)
			c.Set(ctx, "k", []byte("v"))
			_, ok := c.Get(ctx, "k")
			So(ok, ShouldBeFalse)
			So(c.Purge(ctx), ShouldBeNil)
			gen, err := c.Generation(ctx)
			So(err, ShouldBeNil)
			So(gen, ShouldEqual, 0)
			So(c.Close(), ShouldBeNil)
		})

		Convey("Unknown backends are rejected", func() {
			_, err := New(ctx, Settings{Backend: "memcached"})
			So(errors.Is(err, ErrUnknownBackend), ShouldBeTrue)
		})
	})
}

// TestRedis runs against a live server when IGOT_TEST_REDIS_ADDR is set.
func TestRedis(t *testing.T) {
	addr := os.Getenv("IGOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("IGOT_TEST_REDIS_ADDR not set")
	}
	Convey("Given a redis cache", t, func() {
		ctx := context.Background()
		r, err := NewRedis(ctx, addr, "", 0, time.Minute)
		So(err, ShouldBeNil)
		defer r.Close()

		r.Set(ctx, "summary", []byte(`{"totalEmployees":1}`))
		v, ok := r.Get(ctx, "summary")
		So(ok, ShouldBeTrue)
		So(string(v), ShouldEqual, `{"totalEmployees":1}`)

		before, err := r.Generation(ctx)
		So(err, ShouldBeNil)
		So(r.Purge(ctx), ShouldBeNil)
		_, ok = r.Get(ctx, "summary")
		So(ok, ShouldBeFalse)

		after, err := r.Generation(ctx)
		So(err, ShouldBeNil)
		So(after, ShouldEqual, before+1)

		other, err := NewRedis(ctx, addr, "", 0, time.Minute)
		So(err, ShouldBeNil)
		defer other.Close()
		shared, err := other.Generation(ctx)
		So(err, ShouldBeNil)
		So(shared, ShouldEqual, after)
	})
}
