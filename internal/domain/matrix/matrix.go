package matrix

import (
	"github.com/okian/placerank/internal/domain/model"
)

// Interactions is a users × places matrix of 0/1 entries. Entry (u, p) is 1
// iff at least one check-in exists for that pair.
type Interactions struct {
	Users  *Index
	Places *Index
	Cells  [][]float64
}

type pair struct {
	user, place int
}

// Build creates the interaction matrix from the rosters and the event log.
// Only check-in events count. Events naming unknown users or places are
// ignored. The result does not depend on the order of events.
func Build(users []model.User, places []model.Place, events []model.Event) *Interactions {
	userKeys := make([]string, len(users))
	for i, u := range users {
		userKeys[i] = u.Key
	}
	placeKeys := make([]string, len(places))
	for i, p := range places {
		placeKeys[i] = p.Key
	}

	m := &Interactions{
		Users:  NewIndex(userKeys),
		Places: NewIndex(placeKeys),
	}

	checkedIn := make(map[pair]struct{})
	for _, e := range events {
		if e.Type != model.CheckIn {
			continue
		}
		u := m.Users.Position(e.UserKey)
		p := m.Places.Position(e.PlaceKey)
		if u == NotFound || p == NotFound {
			continue
		}
		checkedIn[pair{u, p}] = struct{}{}
	}

	m.Cells = make([][]float64, m.Users.Len())
	for u := range m.Cells {
		row := make([]float64, m.Places.Len())
		for p := range row {
			if _, ok := checkedIn[pair{u, p}]; ok {
				row[p] = 1.0
			}
		}
		m.Cells[u] = row
	}
	return m
}

// Rows returns the number of users.
func (m *Interactions) Rows() int { return m.Users.Len() }

// Cols returns the number of places.
func (m *Interactions) Cols() int { return m.Places.Len() }

// Empty reports whether either roster is empty.
func (m *Interactions) Empty() bool {
	return m == nil || m.Rows() == 0 || m.Cols() == 0
}

// At returns the entry for user u and place p.
func (m *Interactions) At(u, p int) float64 {
	return m.Cells[u][p]
}

// UserBreadth returns, per user, the number of distinct places checked into.
func (m *Interactions) UserBreadth() []float64 {
	out := make([]float64, m.Rows())
	for u, row := range m.Cells {
		for _, v := range row {
			out[u] += v
		}
	}
	return out
}

// PlacePopularity returns, per place, the number of distinct users who
// checked in.
func (m *Interactions) PlacePopularity() []float64 {
	out := make([]float64, m.Cols())
	for _, row := range m.Cells {
		for p, v := range row {
			out[p] += v
		}
	}
	return out
}
