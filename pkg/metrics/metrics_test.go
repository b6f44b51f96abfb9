package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.eventsDup.Inc()

			Convey("Then metrics should be registered under the namespace with const labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_events_duplicate_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options receive empty values", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil),
				WithCustomLabels(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults should be kept", func() {
				So(m.namespace, ShouldEqual, "placerank")
				So(m.subsystem, ShouldEqual, "recommender")
				So(len(m.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ingestion", func() {
			before := testutil.ToFloat64(globalManager.eventsIngested.WithLabelValues("check_in"))
			RecordEventIngested("check_in")
			RecordEventDuplicate()
			RecordEventRejected("backpressure")

			Convey("Then counters should move", func() {
				So(testutil.ToFloat64(globalManager.eventsIngested.WithLabelValues("check_in")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.eventsDup), ShouldBeGreaterThan, 0)
				So(testutil.ToFloat64(globalManager.eventsRejected.WithLabelValues("backpressure")), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When recording computations and cache lookups", func() {
			RecordComputation("il", 1.5)
			RecordCacheHit()
			RecordCacheMiss()
			RecordRecommendation("cold_start")

			Convey("Then they should be visible", func() {
				So(testutil.ToFloat64(globalManager.rankingComputations.WithLabelValues("il")), ShouldBeGreaterThan, 0)
				So(testutil.ToFloat64(globalManager.rankingCache.WithLabelValues("hit")), ShouldBeGreaterThan, 0)
				So(testutil.ToFloat64(globalManager.recommendations.WithLabelValues("cold_start")), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When updating gauges", func() {
			UpdateRosterSizes(2, 3, 4)
			UpdateQueueSize(5)
			UpdateQueueCapacity(10)
			UpdateWorkerCount(6)

			Convey("Then the gauges should hold the values", func() {
				So(testutil.ToFloat64(globalManager.users), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.places), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.events), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 6)
			})
		})

		Convey("When recording HTTP traffic and errors", func() {
			RecordHTTPRequest("ranking", "GET", "200", 3)
			RecordError("worker", "append_failed")
			RecordWorkerError()

			Convey("Then the custom registry should expose them", func() {
				n, err := testutil.GatherAndCount(GetRegistry(), "placerank_recommender_http_requests_total")
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThan, 0)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := []string{}
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "placerank_recommender_errors_total")
			})
		})
	})
}
