// Package memory is an in-process Ledger, optionally seeded from JSON files.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/render"
)

// Seed file names looked up in the data directory.
const (
	InvoicesFile  = "invoices.json"
	ExpensesFile  = "expenses.json"
	TemplatesFile = "templates.json"
)

type Store struct {
	mu        sync.RWMutex
	invoices  []core.InvoiceRecord
	expenses  []core.ExpenseRecord
	templates map[string]render.Template
	renders   map[string]ledger.RenderJob
}

var _ ledger.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{
		templates: map[string]render.Template{},
		renders:   map[string]ledger.RenderJob{},
	}
}

// NewFromDir seeds a store from the JSON files in dir. Missing files are
// skipped; malformed ones are an error.
func NewFromDir(dir string) (*Store, error) {
	s := New()
	if err := readJSON(filepath.Join(dir, InvoicesFile), &s.invoices); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, ExpensesFile), &s.expenses); err != nil {
		return nil, err
	}

	var rawTemplates []json.RawMessage
	if err := readJSON(filepath.Join(dir, TemplatesFile), &rawTemplates); err != nil {
		return nil, err
	}
	for i, raw := range rawTemplates {
		tpl, err := render.DecodeTemplate(raw)
		if err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", TemplatesFile, i, err)
		}
		if tpl.ID == "" {
			return nil, fmt.Errorf("%s entry %d: missing id", TemplatesFile, i)
		}
		s.templates[tpl.ID] = tpl
	}
	return s, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *Store) ListInvoices(_ context.Context) ([]core.InvoiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.InvoiceRecord{}, s.invoices...), nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (core.InvoiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return core.InvoiceRecord{}, fmt.Errorf("invoice %q: %w", id, core.ErrNotFound)
}

func (s *Store) CreateInvoice(_ context.Context, inv core.InvoiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = append(s.invoices, inv)
	return nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.ExpenseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ExpenseRecord{}, s.expenses...), nil
}

func (s *Store) CreateExpense(_ context.Context, exp core.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, exp)
	return nil
}

// ListTemplates returns templates ordered by ID.
func (s *Store) ListTemplates(_ context.Context) ([]render.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]render.Template, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (render.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[id]
	if !ok {
		return render.Template{}, fmt.Errorf("template %q: %w", id, core.ErrNotFound)
	}
	return tpl, nil
}

func (s *Store) SaveTemplate(_ context.Context, tpl render.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.ID] = tpl
	return nil
}

func (s *Store) SaveRender(_ context.Context, job ledger.RenderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders[job.JobID] = job
	return nil
}

func (s *Store) GetRender(_ context.Context, jobID string) (ledger.RenderJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.renders[jobID]
	if !ok {
		return ledger.RenderJob{}, fmt.Errorf("render job %q: %w", jobID, core.ErrNotFound)
	}
	return job, nil
}
