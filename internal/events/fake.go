package events

import (
	"sync"

	"github.com/markusressel/boiler2go/internal/cycles"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Started contains all samples that started a cycle.
	Started []cycles.Sample
	// Ended contains all completed cycles.
	Ended []cycles.Cycle
	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by every publish.
	PublishError error
	// Closed tracks if Close was called.
	Closed bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishCycleStarted(sample cycles.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatCycleStarted(sample)
	if err != nil {
		return err
	}
	f.Started = append(f.Started, sample)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishCycleEnded(cycle cycles.Cycle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatCycleEnded(cycle)
	if err != nil {
		return err
	}
	f.Ended = append(f.Ended, cycle)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Counts returns the number of published cycle starts and ends
func (f *FakePublisher) Counts() (started int, ended int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Started), len(f.Ended)
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
