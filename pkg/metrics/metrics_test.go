package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithMetricsEnabled(true),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered there", func() {
				So(m, ShouldNotBeNil)
				m.saves.WithLabelValues("create", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				So(families[0].GetName(), ShouldStartWith, "test_unit_")
			})
		})

		Convey("When a manager is created with metrics disabled", func() {
			m := NewManager(
				WithMetricsEnabled(false),
				WithPrometheusRegistry(registry),
			)

			Convey("Then nothing is exported through the registry", func() {
				m.saves.WithLabelValues("create", "ok").Inc()
				m.escalations.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldBeEmpty)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording save path metrics", func() {
			RecordSave("update", "empty")
			RecordDiffOperation("upsert_rating")
			ObservePayloadSize(3)
			RecordPersistLatency(2)

			Convey("Then the families are gathered from the custom registry", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "scorecard_evaluation_saves_total")
				So(names, ShouldContain, "scorecard_evaluation_diff_operations_total")
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordRating("baseline")
				RecordBulkApply(true)
				RecordBulkApply(false)
				RecordHistoryStep("undo")
				SessionOpened()
				SessionClosed()
				RecordHydrateSkipped(2)
				RecordCoercionFailure()
				RecordCatalogFetch(true)
				RecordCatalogFetch(false)
				RecordCatalogCacheHit()
				RecordStaleDiscarded()
				RecordEscalation()
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueRejected("full")
				UpdateDispatcherWorkers(2)
				RecordDispatchError()
			}, ShouldNotPanic)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
