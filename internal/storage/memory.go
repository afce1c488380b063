package storage

import (
	"context"
	"sort"
	"sync"

	"saldo/internal/core"
	"saldo/internal/report"
)

// MemoryRepository is an in-process aggregate store used for tests and the
// "memory" backend. A single mutex serializes updates, which is the per-key
// locking discipline the report service requires, just coarser.
type MemoryRepository struct {
	mu      sync.Mutex
	reports map[string]core.Report // key: userID + "\x00" + period
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		reports: make(map[string]core.Report),
	}
}

func memKey(userID, period string) string {
	return userID + "\x00" + period
}

func (m *MemoryRepository) Update(ctx context.Context, userID, period string, apply func(*core.Report) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(userID, period)
	r, ok := m.reports[key]
	if !ok {
		r = core.NewReport(userID, period)
	}
	if err := apply(&r); err != nil {
		return err
	}
	m.reports[key] = r
	return nil
}

func (m *MemoryRepository) GetReport(ctx context.Context, userID, period string) (core.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[memKey(userID, period)]
	if !ok {
		return core.Report{}, report.ErrNotFound
	}
	return r, nil
}

func (m *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]core.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Report, 0)
	for _, r := range m.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

func (m *MemoryRepository) ListByPeriodRange(ctx context.Context, userID, startPeriod, endPeriod string) ([]core.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Report, 0)
	for _, r := range m.reports {
		if r.UserID == userID && r.Period >= startPeriod && r.Period <= endPeriod {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

// Size returns the number of stored aggregates. Test helper.
func (m *MemoryRepository) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}
