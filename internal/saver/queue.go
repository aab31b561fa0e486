package saver

import (
	"sync"

	"github.com/searchlight-sar/scanner/pkg/types"
)

// Queue is the capture queue between the detection pipeline and the batch
// scheduler. Multiple camera-processing goroutines enqueue concurrently; a
// single scheduler drains. Handoff transfers ownership: producers must not
// touch a frame's buffer after Enqueue.
type Queue struct {
	mu     sync.Mutex
	frames []*types.CapturedFrame
}

// NewQueue creates an empty capture queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a frame. Never blocks producers on consumer progress.
func (q *Queue) Enqueue(frame *types.CapturedFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = append(q.frames, frame)
}

// Drain atomically removes and returns all currently queued frames, oldest
// first. Frames enqueued during a drain wait for the next cycle.
func (q *Queue) Drain() []*types.CapturedFrame {
	q.mu.Lock()
	defer q.mu.Unlock()
	frames := q.frames
	q.frames = nil
	return frames
}

// Len reports how many frames are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
