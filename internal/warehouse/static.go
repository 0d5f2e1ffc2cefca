package warehouse

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ports/poimap/internal/models"
)

// StaticSource serves an in-memory table. It backs tests and embedders that
// already hold their data.
type StaticSource struct {
	mu    sync.Mutex
	table *models.Table
	err   error
	calls int
}

// NewStatic returns a source that always yields tbl.
func NewStatic(tbl *models.Table) *StaticSource {
	return &StaticSource{table: tbl}
}

// Set replaces the table and error returned by subsequent fetches.
func (s *StaticSource) Set(tbl *models.Table, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table, s.err = tbl, err
}

// Calls returns how many times Fetch has been called.
func (s *StaticSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Describe implements Source.
func (s *StaticSource) Describe() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	if s.table != nil {
		n = len(s.table.Records)
	}
	return fmt.Sprintf("static (%d rows)", n)
}

// Fetch implements Source.
func (s *StaticSource) Fetch(_ context.Context) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.table == nil {
		return &models.Table{Records: models.RecordSet{}}, nil
	}
	return s.table, nil
}
