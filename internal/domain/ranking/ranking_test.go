package ranking_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/okian/placerank/internal/domain/matrix"
	"github.com/okian/placerank/internal/domain/model"
	"github.com/okian/placerank/internal/domain/ranking"
	"github.com/okian/placerank/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMerge(t *testing.T) {
	Convey("Given a place that leads both lists", t, func() {
		isf := []scoring.Result{{PlaceKey: "A", Score: 0.9}, {PlaceKey: "B", Score: 0.4}, {PlaceKey: "C", Score: 0.1}}
		isp := []scoring.Result{{PlaceKey: "A", Score: 0.8}, {PlaceKey: "C", Score: 0.5}, {PlaceKey: "B", Score: 0.2}}

		Convey("When merging", func() {
			out := ranking.Merge(isf, isp, nil)

			Convey("Then the shared leader should appear once at position 0", func() {
				So(out[0], ShouldEqual, "A")
				So(out, ShouldResemble, []string{"A", "C", "B"})
			})
		})
	})

	Convey("Given A leading ISF and B leading ISP with a more confident ISP", t, func() {
		isf := []scoring.Result{{PlaceKey: "A", Score: 0.9}, {PlaceKey: "B", Score: 0.5}}
		isp := []scoring.Result{{PlaceKey: "B", Score: 0.95}, {PlaceKey: "A", Score: 0.3}}

		Convey("Then the output should start with B then A", func() {
			So(ranking.Merge(isf, isp, nil), ShouldResemble, []string{"B", "A"})
		})
	})

	Convey("Given A leading ISF and B leading ISP with a more confident ISF", t, func() {
		isf := []scoring.Result{{PlaceKey: "A", Score: 0.9}, {PlaceKey: "B", Score: 0.5}, {PlaceKey: "C", Score: 0.2}}
		isp := []scoring.Result{{PlaceKey: "B", Score: 0.7}, {PlaceKey: "C", Score: 0.6}, {PlaceKey: "A", Score: 0.3}}

		Convey("Then the ISF leader should go first", func() {
			So(ranking.Merge(isf, isp, nil), ShouldResemble, []string{"A", "B", "C"})
		})
	})

	Convey("Given equal leader scores across metrics", t, func() {
		isf := []scoring.Result{{PlaceKey: "A", Score: 0.5}, {PlaceKey: "B", Score: 0.1}}
		isp := []scoring.Result{{PlaceKey: "B", Score: 0.5}, {PlaceKey: "A", Score: 0.1}}

		Convey("Then ISF should win the tie", func() {
			So(ranking.Merge(isf, isp, nil), ShouldResemble, []string{"A", "B"})
		})
	})

	Convey("Given a place missing from the ISP list", t, func() {
		isf := []scoring.Result{{PlaceKey: "A", Score: 0.9}, {PlaceKey: "B", Score: 0.5}, {PlaceKey: "X", Score: 0.4}}
		isp := []scoring.Result{{PlaceKey: "A", Score: 0.8}, {PlaceKey: "B", Score: 0.6}}

		Convey("Then it should still be emitted exactly once", func() {
			So(ranking.Merge(isf, isp, nil), ShouldResemble, []string{"A", "B", "X"})
		})
	})

	Convey("Given a leader that does not resolve to a known place", t, func() {
		isf := []scoring.Result{{PlaceKey: "ghost", Score: 0.9}, {PlaceKey: "A", Score: 0.5}, {PlaceKey: "B", Score: 0.1}}
		isp := []scoring.Result{{PlaceKey: "B", Score: 0.8}, {PlaceKey: "A", Score: 0.6}}
		known := func(k string) bool { return k != "ghost" }

		Convey("Then both candidates of that round should be skipped", func() {
			So(ranking.Merge(isf, isp, known), ShouldResemble, []string{"A"})
		})
	})

	Convey("Given empty lists", t, func() {
		So(ranking.Merge(nil, nil, nil), ShouldBeEmpty)
	})
}

func TestIL(t *testing.T) {
	Convey("Given the two-user three-place scenario", t, func() {
		users := []model.User{{Key: "u1"}, {Key: "u2"}}
		places := []model.Place{
			{Key: "p1", Tags: []string{"A"}},
			{Key: "p2", Tags: []string{"A", "B"}},
			{Key: "p3", Tags: []string{"B"}},
		}
		events := []model.Event{
			{Type: model.CheckIn, UserKey: "u1", PlaceKey: "p1"},
			{Type: model.CheckIn, UserKey: "u1", PlaceKey: "p1"},
			{Type: model.CheckIn, UserKey: "u2", PlaceKey: "p2"},
			{Type: model.CheckIn, UserKey: "u2", PlaceKey: "p3"},
		}

		Convey("When computing the IL ranking", func() {
			entries := ranking.IL(users, places, events)

			Convey("Then it should be a permutation with p1 last", func() {
				So(ranking.Keys(entries), ShouldResemble, []string{"p2", "p3", "p1"})
				for i, e := range entries {
					So(e.Rank, ShouldEqual, i+1)
				}
			})

			Convey("And it should carry both signals", func() {
				So(entries[0].ISF, ShouldBeGreaterThan, 0)
				So(entries[0].ISP, ShouldBeGreaterThan, 0)
			})

			Convey("And repeated runs should be identical", func() {
				So(ranking.IL(users, places, events), ShouldResemble, entries)
			})
		})
	})

	Convey("Given broad users favouring harbor and narrow users favouring station", t, func() {
		users := []model.User{{Key: "u1"}, {Key: "u2"}, {Key: "u3"}, {Key: "u4"}, {Key: "u5"}, {Key: "u6"}}
		places := []model.Place{{Key: "harbor"}, {Key: "market"}, {Key: "museum"}, {Key: "station"}}
		events := []model.Event{
			{Type: model.CheckIn, UserKey: "u1", PlaceKey: "station"},
			{Type: model.CheckIn, UserKey: "u2", PlaceKey: "station"},
			{Type: model.CheckIn, UserKey: "u3", PlaceKey: "market"},
			{Type: model.CheckIn, UserKey: "u4", PlaceKey: "station"},
			{Type: model.CheckIn, UserKey: "u5", PlaceKey: "harbor"},
			{Type: model.CheckIn, UserKey: "u5", PlaceKey: "museum"},
			{Type: model.CheckIn, UserKey: "u6", PlaceKey: "harbor"},
			{Type: model.CheckIn, UserKey: "u6", PlaceKey: "market"},
		}

		Convey("When computing the IL ranking", func() {
			entries := ranking.IL(users, places, events)

			Convey("Then the more confident ISP leader should go first", func() {
				// ISF leads with station (27/√1719), ISP with harbor (560/√583289).
				So(ranking.Keys(entries), ShouldResemble, []string{"harbor", "station", "market", "museum"})
				So(entries[0].ISP, ShouldAlmostEqual, 560/math.Sqrt(583289), 1e-12)
				So(entries[1].ISF, ShouldAlmostEqual, 27/math.Sqrt(1719), 1e-12)
				So(entries[0].ISP, ShouldBeGreaterThan, entries[1].ISF)
			})

			Convey("And the order should differ from merging ISF with itself", func() {
				m := matrix.Build(users, places, events)
				isf := scoring.ISF{}.Score(m)
				So(ranking.Merge(isf, isf, nil), ShouldResemble, []string{"station", "harbor", "market", "museum"})
			})
		})
	})

	Convey("Given a larger roster with sparse activity", t, func() {
		var users []model.User
		var places []model.Place
		var events []model.Event
		for i := 0; i < 7; i++ {
			users = append(users, model.User{Key: fmt.Sprintf("u%d", i)})
		}
		for i := 0; i < 20; i++ {
			places = append(places, model.Place{Key: fmt.Sprintf("p%02d", i)})
		}
		for u := 0; u < 7; u++ {
			for p := u; p < 20; p += u + 2 {
				events = append(events, model.Event{
					Type: model.CheckIn, UserKey: fmt.Sprintf("u%d", u), PlaceKey: fmt.Sprintf("p%02d", p),
				})
			}
		}

		Convey("Then the ranking should be a full permutation of the place roster", func() {
			keys := ranking.Keys(ranking.IL(users, places, events))
			So(len(keys), ShouldEqual, len(places))
			seen := map[string]bool{}
			for _, k := range keys {
				So(seen[k], ShouldBeFalse)
				seen[k] = true
			}
			for _, p := range places {
				So(seen[p.Key], ShouldBeTrue)
			}
		})
	})

	Convey("Given empty rosters", t, func() {
		So(ranking.IL(nil, nil, nil), ShouldBeEmpty)
		So(ranking.IL([]model.User{{Key: "u"}}, nil, nil), ShouldBeEmpty)
	})

	Convey("Given users without any check-in", t, func() {
		places := []model.Place{{Key: "a"}, {Key: "b"}, {Key: "c"}}
		entries := ranking.IL([]model.User{{Key: "u"}}, places, nil)

		Convey("Then the roster order should be kept", func() {
			So(ranking.Keys(entries), ShouldResemble, []string{"a", "b", "c"})
		})
	})
}
