package access

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Policy owns the shared permission matrix and its persistence.
type Policy struct {
	store  Store
	logger *slog.Logger

	mu     sync.RWMutex
	matrix Matrix
}

// NewPolicy starts from the default matrix; call Load to read persisted state.
func NewPolicy(store Store, logger *slog.Logger) *Policy {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{store: store, logger: logger, matrix: DefaultMatrix()}
}

// Load replaces the in-memory matrix with the persisted one merged over the
// defaults. Corrupt state falls back to the defaults. When the store cannot be
// read the defaults are served until a later Refresh or write succeeds.
func (p *Policy) Load(ctx context.Context) {
	matrix, err := p.read(ctx)
	if err != nil {
		p.logger.Warn("load permission matrix, serving defaults", slog.Any("error", err))
		matrix = DefaultMatrix()
	}

	p.mu.Lock()
	p.matrix = matrix
	p.mu.Unlock()
}

// Refresh re-reads the persisted matrix. On a read error the current matrix
// is kept and the error returned.
func (p *Policy) Refresh(ctx context.Context) error {
	matrix, err := p.read(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.matrix = matrix
	p.mu.Unlock()
	return nil
}

// Watch refreshes the matrix every interval until ctx is done, picking up
// writes made by other processes sharing the store.
func (p *Policy) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("refresh permission matrix", slog.Any("error", err))
			}
		}
	}
}

// read fetches and decodes the persisted matrix. Only store failures are
// returned; missing or corrupt data yields the defaults.
func (p *Policy) read(ctx context.Context) (Matrix, error) {
	data, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("access: read permission matrix: %w", err)
	}
	if data == nil {
		return DefaultMatrix(), nil
	}
	decoded, skipped, decodeErr := DecodeMatrix(data)
	if decodeErr != nil {
		p.logger.Warn("discard corrupt permission matrix", slog.Any("error", decodeErr))
	}
	if len(skipped) > 0 {
		p.logger.Warn("permission matrix contained unknown tags", slog.Any("skipped", skipped))
	}
	return decoded, nil
}

// Modules returns a copy of the module set for role.
func (p *Policy) Modules(role Role) ModuleSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.matrix.Modules(role).Clone()
}

// Allows reports whether role's set contains module.
func (p *Policy) Allows(role Role, module Module) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.matrix.Modules(role).Has(module)
}

// Matrix returns a deep copy of the current matrix.
func (p *Policy) Matrix() Matrix {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.matrix.Clone()
}

// Replace overwrites the module set of role and persists the result. The
// change is applied to a fresh read of the store so concurrent writers sharing
// it are not overwritten; if the store cannot be read nothing is saved. The
// in-memory matrix only changes once the store accepted the write.
func (p *Policy) Replace(ctx context.Context, role Role, modules ModuleSet) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	if role == RoleAdmin {
		return ErrAdminMatrixFixed
	}
	for m := range modules {
		if !m.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownModule, string(m))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.read(ctx)
	if err != nil {
		return err
	}
	next[role] = modules.Clone()
	if err := p.persist(ctx, next); err != nil {
		return err
	}
	p.matrix = next
	return nil
}

// Reset restores and persists the default matrix.
func (p *Policy) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := DefaultMatrix()
	if err := p.persist(ctx, next); err != nil {
		return err
	}
	p.matrix = next
	return nil
}

func (p *Policy) persist(ctx context.Context, m Matrix) error {
	data, err := EncodeMatrix(m)
	if err != nil {
		return err
	}
	if err := p.store.Save(ctx, data); err != nil {
		return fmt.Errorf("access: persist permission matrix: %w", err)
	}
	return nil
}
