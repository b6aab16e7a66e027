package dedupe_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	dedupe "github.com/okian/cpboard/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it should start empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is new", func() {
			seen := d.SeenAndRecord(ctx, "CMRIT_2025/full")

			Convey("Then it should return false and record the key", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key was already seen", func() {
			d.SeenAndRecord(ctx, "CMRIT_2025/full")
			seen := d.SeenAndRecord(ctx, "CMRIT_2025/full")

			Convey("Then it should return true without growing", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is unrecorded", func() {
			d.SeenAndRecord(ctx, "CMRIT_2025/full")
			d.Unrecord(ctx, "CMRIT_2025/full")
			d.Unrecord(ctx, "never-recorded")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "CMRIT_2025/full"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, k := range []string{"a", "b", "c", "d"} {
			d.SeenAndRecord(ctx, k)
		}

		Convey("Then the oldest key should have been evicted", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 10000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i))
		}

		Convey("Then nothing should be evicted", func() {
			So(d.Size(), ShouldEqual, 10000)
			So(d.SeenAndRecord(ctx, "key-0"), ShouldBeTrue)
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given concurrent callers racing on the same keys", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := map[string]int{}
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					key := fmt.Sprintf("run-%d", i)
					if !d.SeenAndRecord(ctx, key) {
						mu.Lock()
						winners[key]++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each key should be won exactly once", func() {
			So(len(winners), ShouldEqual, 100)
			for _, n := range winners {
				So(n, ShouldEqual, 1)
			}
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given file contents", t, func() {
		a, errA := dedupe.Fingerprint(strings.NewReader("Hall Ticket Number,Total Score\nS1,80\n"))
		b, errB := dedupe.Fingerprint(strings.NewReader("Hall Ticket Number,Total Score\nS1,80\n"))
		c, errC := dedupe.Fingerprint(strings.NewReader("Hall Ticket Number,Total Score\nS1,81\n"))

		Convey("Then identical content should share a fingerprint", func() {
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)
			So(errC, ShouldBeNil)
			So(a, ShouldEqual, b)
			So(a, ShouldNotEqual, c)
			So(len(a), ShouldEqual, 64)
		})

		Convey("When fingerprinting files", func() {
			dir := t.TempDir()
			p := filepath.Join(dir, "copy.csv")
			So(os.WriteFile(p, []byte("Hall Ticket Number,Total Score\nS1,80\n"), 0o600), ShouldBeNil)

			got, err := dedupe.FingerprintFile(p)
			_, missingErr := dedupe.FingerprintFile(filepath.Join(dir, "missing.csv"))

			Convey("Then the file fingerprint should match the stream one", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, a)
				So(missingErr, ShouldNotBeNil)
			})
		})
	})
}
