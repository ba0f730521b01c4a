// Package queue provides the unbounded lock-free multi-producer single-consumer queue
// behind the in-process transport. Each in-process connection uses one queue per direction.
//
// Items pushed by one goroutine arrive in push order. Items of concurrent producers are
// ordered by whichever Push linked its node first. Close delivers what is queued and then
// closes the Recv channel, Discard drops it.
package queue
