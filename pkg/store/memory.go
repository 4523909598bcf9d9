package store

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	rberr "github.com/matzehuels/rankbars/pkg/errors"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	notes     map[string]Note
	annual    map[string]AnnualNote
	companies map[string]CompanyDoc
	snapshots map[int]snapshot.Snapshot
	now       func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		notes:     make(map[string]Note),
		annual:    make(map[string]AnnualNote),
		companies: make(map[string]CompanyDoc),
		snapshots: make(map[int]snapshot.Snapshot),
		now:       time.Now,
	}
}

func (m *Memory) GetNote(_ context.Context, company string) (Note, error) {
	if err := validateCompany(company); err != nil {
		return Note{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n, ok := m.notes[company]; ok {
		return n, nil
	}
	return Note{Company: company}, nil
}

func (m *Memory) SetNoteField(_ context.Context, company, field, content string) error {
	return m.editNote(company, field, content)
}

func (m *Memory) ClearNoteField(_ context.Context, company, field string) error {
	return m.editNote(company, field, "")
}

func (m *Memory) editNote(company, field, content string) error {
	if err := validateCompany(company); err != nil {
		return err
	}
	if err := ValidateNoteField(field); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.notes[company]
	n.Company = company
	n.set(field, content)
	now := m.now()
	n.LastUpdated = &now
	m.notes[company] = n
	return nil
}

func (m *Memory) GetAnnualNote(_ context.Context, year int) (AnnualNote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n, ok := m.annual[strconv.Itoa(year)]; ok {
		return n, nil
	}
	return AnnualNote{}, ErrNotFound
}

func (m *Memory) SetAnnualNote(_ context.Context, year int, upd AnnualNoteUpdate) error {
	if upd.Empty() {
		return rberr.New(rberr.ErrCodeInvalidInput, "body must include theme or trend")
	}
	key := strconv.Itoa(year)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.annual[key]
	n.Year = key
	if upd.Theme != nil {
		n.Theme = *upd.Theme
	}
	if upd.Trend != nil {
		n.Trend = *upd.Trend
	}
	m.annual[key] = n
	return nil
}

func (m *Memory) GetCompany(_ context.Context, company string) (CompanyDoc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.companies[company]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(doc), nil
}

func (m *Memory) SetCompanyField(_ context.Context, company, field string, value any) (CompanyDoc, bool, error) {
	if err := validateCompany(company); err != nil {
		return nil, false, err
	}
	if err := ValidateCompanyField(field); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.companies[company]
	if !ok {
		doc = CompanyDoc{fieldCompanyName: company}
		m.companies[company] = doc
	}
	doc[field] = value
	doc[fieldUpdated] = m.now()
	return maps.Clone(doc), !ok, nil
}

func (m *Memory) UnsetCompanyField(_ context.Context, company, field string) (CompanyDoc, error) {
	if err := ValidateCompanyField(field); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.companies[company]
	if !ok {
		return nil, ErrNotFound
	}
	delete(doc, field)
	doc[fieldUpdated] = m.now()
	return maps.Clone(doc), nil
}

func (m *Memory) LoadSnapshot(_ context.Context, year int) (snapshot.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[year]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(s), nil
}

func (m *Memory) SaveSnapshot(_ context.Context, year int, s snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[year] = slices.Clone(s)
	return nil
}

func (m *Memory) SnapshotYears(context.Context) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.snapshots)), nil
}

func (m *Memory) Close(context.Context) error { return nil }

var _ Store = (*Memory)(nil)
