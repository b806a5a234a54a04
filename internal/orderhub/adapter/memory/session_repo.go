package memory

import (
	"context"
	"sync"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
)

type SessionRepo struct {
	mu       sync.RWMutex
	byID     map[string]models.Session
	byHash   map[string]string // token hash -> session ID
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{
		byID:   make(map[string]models.Session),
		byHash: make(map[string]string),
	}
}

func (r *SessionRepo) Create(ctx context.Context, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[session.SessionID] = session
	if session.TokenHash != "" {
		r.byHash[session.TokenHash] = session.SessionID
	}
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, sessionID string) (models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[sessionID]
	if !ok {
		return models.Session{}, core.ErrSessionNotFound
	}
	return s, nil
}

func (r *SessionRepo) GetByTokenHash(ctx context.Context, hash string) (models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byHash[hash]
	if !ok {
		return models.Session{}, core.ErrSessionNotFound
	}
	return r.byID[id], nil
}

type TableRepo struct {
	mu     sync.RWMutex
	tables map[string]models.Table
}

func NewTableRepo() *TableRepo {
	return &TableRepo{tables: make(map[string]models.Table)}
}

// Seed registers a table; dev mode seeds a default floor plan at startup.
func (r *TableRepo) Seed(table models.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.TableID] = table
}

func (r *TableRepo) Get(ctx context.Context, tableID string) (models.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[tableID]
	if !ok {
		return models.Table{}, core.ErrTableNotFound
	}
	return t, nil
}

// SetOpen flips a table's availability, closing out its sessions on their
// next resolution.
func (r *TableRepo) SetOpen(tableID string, open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tables[tableID]; ok {
		t.IsOpen = open
		r.tables[tableID] = t
	}
}
