package metrics

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then defaults should be applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "cpboard")
				So(manager.subsystem, ShouldEqual, "leaderboard")
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("pipeline"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be honoured", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "pipeline")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.enabled, ShouldBeFalse)
			})

			Convey("And collectors should be registered on that registry", func() {
				manager.runsTotal.WithLabelValues("c", "full", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_pipeline_runs_total")
			})
		})

		Convey("When passing empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "cpboard")
				So(manager.subsystem, ShouldEqual, "leaderboard")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording a run", func() {
			before := testutil.ToFloat64(globalManager.runsTotal.WithLabelValues("rec", "full", "ok"))
			RecordRun("rec", "full", "ok", 120)

			Convey("Then the run counter should advance", func() {
				So(testutil.ToFloat64(globalManager.runsTotal.WithLabelValues("rec", "full", "ok")), ShouldEqual, before+1)
			})
		})

		Convey("When updating students scored", func() {
			UpdateStudentsScored("rec", 42)

			Convey("Then the gauge should hold the value", func() {
				So(testutil.ToFloat64(globalManager.studentsScored.WithLabelValues("rec")), ShouldEqual, 42)
			})
		})

		Convey("When recording ingestion counts", func() {
			before := testutil.ToFloat64(globalManager.rowsDropped.WithLabelValues("weekly"))
			RecordRowsDropped("weekly", 3)
			RecordRowsDropped("weekly", 0)
			RecordMalformedScores("weekly", 2)
			RecordFileIngested("weekly")
			RecordFileSkipped("weekly", "unreadable")

			Convey("Then zero counts should not be added", func() {
				So(testutil.ToFloat64(globalManager.rowsDropped.WithLabelValues("weekly")), ShouldEqual, before+3)
			})
		})

		Convey("When recording store calls", func() {
			before := testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("upload"))
			RecordStoreCall("upload", 5, nil)
			RecordStoreCall("upload", 5, errors.New("boom"))

			Convey("Then only failures should be counted as errors", func() {
				So(testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("upload")), ShouldEqual, before+1)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			UpdateQueueSize(7)
			So(func() {
				RecordRunCoalesced()
				UpdateWorkersBusy(1)
				UpdateWorkersBusy(-1)
				RecordScrapeLookup("codeforces", "ok", 12)
				RecordPlatformAbsent("leetcode")
				RecordHTTPRequest("/healthz", "GET", "200", 1.5)
			}, ShouldNotPanic)

			Convey("Then the queue gauge should hold the value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
			})
		})

		Convey("When gathering the registry", func() {
			_, err := GetRegistry().Gather()

			Convey("Then it should succeed", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics concurrency", t, func() {
		Convey("When recording metrics concurrently", func() {
			before := testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("/concurrent", "GET", "200"))
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						UpdateQueueSize(j)
						RecordHTTPRequest("/concurrent", "GET", "200", float64(j))
					}
				}()
			}
			wg.Wait()

			Convey("Then no increments should be lost", func() {
				So(testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("/concurrent", "GET", "200")), ShouldEqual, before+1000)
			})
		})
	})
}
