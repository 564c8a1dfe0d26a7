package router

import (
	"container/heap"

	"github.com/smatkovi/valhalla-bike-router/internal/navigator"
)

// frontierItem is one entry in a search front's priority queue.
type frontierItem struct {
	state navigator.State
	gCost float64
	fCost float64
	index int
}

// frontierQueue is a container/heap min-heap ordered by fCost, the
// same priority-queue shape katalvlaran-lvlath/dijkstra uses
// (container/heap over a typed slice) generalized to carry an f-cost
// alongside the settled g-cost for the A* heuristic.
type frontierQueue []*frontierItem

func (q frontierQueue) Len() int            { return len(q) }
func (q frontierQueue) Less(i, j int) bool  { return q[i].fCost < q[j].fCost }
func (q frontierQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *frontierQueue) Push(x interface{}) {
	item := x.(*frontierItem)
	item.index = len(*q)
	*q = append(*q, item)
}
func (q *frontierQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// front bundles one direction's search state: its heap, settled
// g-costs, and predecessors.
type front struct {
	queue    frontierQueue
	gCost    map[navigator.State]float64
	pred     map[navigator.State]predecessor
	pushCost map[navigator.State]float64 // best g-cost pushed so far, for predecessor bookkeeping
}

func newFront() *front {
	f := &front{
		gCost:    make(map[navigator.State]float64),
		pred:     make(map[navigator.State]predecessor),
		pushCost: make(map[navigator.State]float64),
	}
	heap.Init(&f.queue)
	return f
}

// considerPredecessor records cand as state's predecessor if it is the
// cheapest path to state pushed so far. A state can be pushed multiple
// times, once per settled neighbour that reaches it before it is
// popped itself; without this check the first push (not necessarily
// the one the heap eventually settles as optimal) would stick,
// leaving reconstruction charging seconds/turn-cost for a path the
// search didn't actually choose.
func (f *front) considerPredecessor(state navigator.State, gCost float64, cand predecessor) {
	if best, has := f.pushCost[state]; has && gCost >= best {
		return
	}
	f.pushCost[state] = gCost
	f.pred[state] = cand
}

func (f *front) push(state navigator.State, gCost, fCost float64) {
	heap.Push(&f.queue, &frontierItem{state: state, gCost: gCost, fCost: fCost})
}

func (f *front) pop() (*frontierItem, bool) {
	if f.queue.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&f.queue).(*frontierItem), true
}

// predecessor records how a state was first reached in a direction:
// the state it came from and the edge (or transition) traversed, used
// both for path reconstruction and for summary statistics.
type predecessor struct {
	from         navigator.State
	edge         *navigator.Edge // nil for a level transition
	isTransition bool
	seconds      float64 // travel time charged for this hop
}
