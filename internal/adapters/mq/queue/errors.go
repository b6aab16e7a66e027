package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrQueueFull = errors.New("run queue is full")
	ErrClosed    = errors.New("run queue is closed")
)
