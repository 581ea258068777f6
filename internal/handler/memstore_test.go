package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
	"github.com/iliyamo/receipt-booklet-ledger/internal/queue"
	"github.com/iliyamo/receipt-booklet-ledger/internal/repository"
)

// memStore is an in-memory DonationStore enforcing the same unique keys as
// the real backends.
type memStore struct {
	mu    sync.Mutex
	items map[int]model.Donation
	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{items: map[int]model.Donation{}, clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) Create(_ context.Context, d *model.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[d.SerialNumber]; ok {
		return repository.ErrDuplicateSerial
	}
	for _, x := range m.items {
		if x.Block == d.Block && x.Floor == d.Floor && x.QuarterNumber == d.QuarterNumber {
			return repository.ErrDuplicateLocation
		}
	}
	m.clock = m.clock.Add(time.Second)
	d.CreatedAt, d.UpdatedAt = m.clock, m.clock
	m.items[d.SerialNumber] = *d
	return nil
}

func (m *memStore) List(context.Context) ([]model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Donation, 0, len(m.items))
	for _, d := range m.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetBySerial(_ context.Context, serial int) (*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[serial]
	if !ok {
		return nil, repository.ErrDonationNotFound
	}
	return &d, nil
}

func (m *memStore) ExistsLocation(_ context.Context, block string, floor, quarter int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.items {
		if x.Block == block && x.Floor == floor && x.QuarterNumber == quarter {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SerialsInRange(_ context.Context, start, end int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for s := range m.items {
		if s >= start && s <= end {
			out = append(out, s)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (m *memStore) TotalAmount(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t float64
	for _, d := range m.items {
		t += d.Amount
	}
	return t, nil
}

func (m *memStore) DeleteBySerial(_ context.Context, serial int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[serial]; !ok {
		return repository.ErrDonationNotFound
	}
	delete(m.items, serial)
	return nil
}

func (m *memStore) DeleteAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.items))
	m.items = map[int]model.Donation{}
	return n, nil
}

// blindStore hides existing rows from the precheck so the insert is the
// first place a duplicate shows up, as when two requests race.
type blindStore struct{ *memStore }

func (b blindStore) GetBySerial(context.Context, int) (*model.Donation, error) {
	return nil, repository.ErrDonationNotFound
}

func (b blindStore) ExistsLocation(context.Context, string, int, int) (bool, error) {
	return false, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.DonationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.DonationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
