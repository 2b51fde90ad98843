package memory

import (
	"context"
	"sync"
	"time"

	"spendsync/internal/core"
	ports "spendsync/internal/sheets"
)

// Store keeps archived rows in memory. It backs local runs without a
// spreadsheet and the tests.
type Store struct {
	mu   sync.Mutex
	rows []ports.ArchivedRow
	now  func() time.Time
}

var (
	_ ports.Archiver      = (*Store)(nil)
	_ ports.ArchiveReader = (*Store)(nil)
)

func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) ArchiveMonth(_ context.Context, phone string, snap core.LedgerSnapshot) error {
	rows := ports.Rows(phone, snap, s.now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *Store) ListArchive(_ context.Context, phone string) ([]ports.ArchivedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.ArchivedRow
	for _, r := range s.rows {
		if r.Phone == phone {
			out = append(out, r)
		}
	}
	ports.SortRows(out)
	return out, nil
}
