package schedule

import (
	"sort"
	"sync"

	"github.com/lumenobs/surveysim/mission"
)

// Visit is one pending observation in the survey queue.
type Visit struct {
	Target mission.Target
	// Origin distinguishes first looks from follow-ups.
	Origin string
	// Remaining is how many follow-up visits are left after this one.
	Remaining int
}

// VisitQueue orders pending visits by target priority. Higher priority
// pops first; visits at equal priority keep their arrival order.
type VisitQueue struct {
	mu    sync.Mutex
	items []Visit
}

func NewVisitQueue() *VisitQueue {
	return &VisitQueue{}
}

func (q *VisitQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *VisitQueue) Push(v Visit) {
	if v.Target.ID == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
}

func (q *VisitQueue) Pop() (Visit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Visit{}, false
	}
	q.sortLocked()
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

func (q *VisitQueue) Peek() (Visit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Visit{}, false
	}
	q.sortLocked()
	return q.items[0], true
}

func (q *VisitQueue) sortLocked() {
	sort.SliceStable(q.items, func(i, j int) bool {
		return q.items[i].Target.Priority > q.items[j].Target.Priority
	})
}
