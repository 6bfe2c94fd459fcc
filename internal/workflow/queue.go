package workflow

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

var (
	// ErrEntryExists is returned when a file is already queued for assignment.
	ErrEntryExists = errors.New("task file is already queued for assignment")
)

// AssignmentEntry is one task file waiting for the orchestrator to assign
// it to a member matching TargetRole, generated by the "generate tasks from
// a config" execution model.
type AssignmentEntry struct {
	FilePath   string
	ProjectID  string
	TargetRole v1.Role
	Priority   int
	QueuedAt   time.Time
	index      int
}

type entryHeap []*AssignmentEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].QueuedAt.Before(h[j].QueuedAt)
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x interface{}) {
	item := x.(*AssignmentEntry)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// AssignmentQueue is the priority queue of task files awaiting assignment
// by the orchestrator, ordered by priority then arrival time.
type AssignmentQueue struct {
	mu      sync.RWMutex
	heap    entryHeap
	byPath  map[string]*AssignmentEntry
}

// NewAssignmentQueue builds an empty AssignmentQueue.
func NewAssignmentQueue() *AssignmentQueue {
	q := &AssignmentQueue{byPath: make(map[string]*AssignmentEntry)}
	heap.Init(&q.heap)
	return q
}

// Enqueue registers filePath for assignment to targetRole.
func (q *AssignmentQueue) Enqueue(filePath, projectID string, targetRole v1.Role, priority int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.byPath[filePath]; exists {
		return ErrEntryExists
	}
	entry := &AssignmentEntry{
		FilePath:   filePath,
		ProjectID:  projectID,
		TargetRole: targetRole,
		Priority:   priority,
		QueuedAt:   time.Now(),
	}
	heap.Push(&q.heap, entry)
	q.byPath[filePath] = entry
	return nil
}

// DequeueForRole removes and returns the highest-priority entry whose
// TargetRole matches role, or nil if none is queued for that role. A plain
// index scan over the backing array only guarantees the global root is the
// max; it does not guarantee a role-filtered subsequence is priority-ordered.
// Instead this pops entries in true priority order via repeated heap.Pop,
// setting aside non-matching entries, and re-pushes those once the first
// (and therefore highest-priority) match for role is found.
func (q *AssignmentQueue) DequeueForRole(role v1.Role) *AssignmentEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var skipped []*AssignmentEntry
	var found *AssignmentEntry
	for q.heap.Len() > 0 {
		entry := heap.Pop(&q.heap).(*AssignmentEntry)
		if entry.TargetRole == role {
			found = entry
			break
		}
		skipped = append(skipped, entry)
	}
	for _, entry := range skipped {
		heap.Push(&q.heap, entry)
	}
	if found != nil {
		delete(q.byPath, found.FilePath)
	}
	return found
}

// Remove removes a queued entry by file path.
func (q *AssignmentQueue) Remove(filePath string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, exists := q.byPath[filePath]
	if !exists {
		return false
	}
	heap.Remove(&q.heap, entry.index)
	delete(q.byPath, filePath)
	return true
}

// Len returns the number of queued entries.
func (q *AssignmentQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.heap)
}

// List returns every queued entry, for status reporting.
func (q *AssignmentQueue) List() []*AssignmentEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*AssignmentEntry, len(q.heap))
	copy(out, q.heap)
	return out
}
