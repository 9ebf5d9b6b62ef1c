package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingStore struct {
	loadErr error
	saveErr error
	data    []byte
}

func (s *failingStore) Load(ctx context.Context) ([]byte, error) {
	return s.data, s.loadErr
}

func (s *failingStore) Save(ctx context.Context, data []byte) error {
	return s.saveErr
}

// flakyStore fails the first loadFailures reads, then behaves like its
// embedded MemoryStore.
type flakyStore struct {
	*MemoryStore
	loadFailures int
}

func (s *flakyStore) Load(ctx context.Context) ([]byte, error) {
	if s.loadFailures > 0 {
		s.loadFailures--
		return nil, errors.New("redis timeout")
	}
	return s.MemoryStore.Load(ctx)
}

func TestPolicyLoadCorruptStateUsesDefaults(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), []byte("{garbage")))

	policy := NewPolicy(store, nil)
	policy.Load(context.Background())

	require.True(t, DefaultMatrix()[RoleSupervisor].Equal(policy.Modules(RoleSupervisor)))
}

func TestPolicyLoadStoreErrorUsesDefaults(t *testing.T) {
	policy := NewPolicy(&failingStore{loadErr: errors.New("redis down")}, nil)
	policy.Load(context.Background())

	require.True(t, DefaultMatrix()[RoleWorker].Equal(policy.Modules(RoleWorker)))
}

func TestPolicyReplaceKeepsMemoryWhenSaveFails(t *testing.T) {
	policy := NewPolicy(&failingStore{saveErr: errors.New("disk full")}, nil)

	err := policy.Replace(context.Background(), RoleWorker, NewModuleSet(ModuleAdmin))
	require.ErrorContains(t, err, "disk full")
	require.False(t, policy.Allows(RoleWorker, ModuleAdmin))
	require.True(t, policy.Allows(RoleWorker, ModuleProduction))
}

func TestPolicyReplaceRejectsInvalidTags(t *testing.T) {
	policy := NewPolicy(nil, nil)

	require.ErrorIs(t, policy.Replace(context.Background(), Role("chef"), NewModuleSet()), ErrUnknownRole)
	require.ErrorIs(t, policy.Replace(context.Background(), RoleWorker, NewModuleSet(Module("billing"))), ErrUnknownModule)
}

func TestPolicyReturnsCopies(t *testing.T) {
	policy := NewPolicy(nil, nil)

	set := policy.Modules(RoleWorker)
	set[ModuleAdmin] = struct{}{}
	matrix := policy.Matrix()
	matrix[RoleWorker][ModulePurchasing] = struct{}{}

	require.False(t, policy.Allows(RoleWorker, ModuleAdmin))
	require.False(t, policy.Allows(RoleWorker, ModulePurchasing))
}

func TestPolicyResetPersistsDefaults(t *testing.T) {
	store := NewMemoryStore()
	policy := NewPolicy(store, nil)
	ctx := context.Background()
	require.NoError(t, policy.Replace(ctx, RoleSupervisor, NewModuleSet()))

	require.NoError(t, policy.Reset(ctx))
	require.True(t, DefaultMatrix()[RoleSupervisor].Equal(policy.Modules(RoleSupervisor)))

	reloaded := NewPolicy(store, nil)
	reloaded.Load(ctx)
	require.True(t, DefaultMatrix()[RoleSupervisor].Equal(reloaded.Modules(RoleSupervisor)))
}

func TestPolicyWritesMergeWithOtherWriters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	server := NewPolicy(store, nil)
	server.Load(ctx)
	operator := NewPolicy(store, nil)
	operator.Load(ctx)

	require.NoError(t, operator.Replace(ctx, RoleWorker, NewModuleSet(ModuleDashboard, ModulePurchasing)))
	require.NoError(t, server.Replace(ctx, RoleSupervisor, NewModuleSet(ModuleDashboard)))

	require.True(t, server.Allows(RoleWorker, ModulePurchasing))

	reloaded := NewPolicy(store, nil)
	reloaded.Load(ctx)
	require.True(t, reloaded.Allows(RoleWorker, ModulePurchasing))
	require.True(t, NewModuleSet(ModuleDashboard).Equal(reloaded.Modules(RoleSupervisor)))
}

func TestPolicyRefreshPicksUpExternalWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	server := NewPolicy(store, nil)
	server.Load(ctx)

	operator := NewPolicy(store, nil)
	require.NoError(t, operator.Replace(ctx, RoleWorker, NewModuleSet(ModuleInventory)))
	require.False(t, server.Allows(RoleWorker, ModuleInventory))

	require.NoError(t, server.Refresh(ctx))
	require.True(t, server.Allows(RoleWorker, ModuleInventory))
	require.False(t, server.Allows(RoleWorker, ModuleProduction))
}

func TestPolicyRefreshKeepsMatrixOnReadError(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	policy := NewPolicy(store, nil)
	require.NoError(t, policy.Replace(ctx, RoleWorker, NewModuleSet(ModuleDashboard)))

	store.loadFailures = 1
	require.ErrorContains(t, policy.Refresh(ctx), "redis timeout")
	require.True(t, NewModuleSet(ModuleDashboard).Equal(policy.Modules(RoleWorker)))
}

func TestPolicyFailedLoadDoesNotClobberStoredMatrix(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	seed := NewPolicy(store, nil)
	require.NoError(t, seed.Replace(ctx, RoleWorker, NewModuleSet(ModuleDashboard)))

	store.loadFailures = 1
	server := NewPolicy(store, nil)
	server.Load(ctx)
	require.True(t, server.Allows(RoleWorker, ModuleProduction))

	require.NoError(t, server.Replace(ctx, RoleSupervisor, NewModuleSet(ModuleDashboard)))
	require.False(t, server.Allows(RoleWorker, ModuleProduction))

	reloaded := NewPolicy(store, nil)
	reloaded.Load(ctx)
	require.False(t, reloaded.Allows(RoleWorker, ModuleProduction))
	require.True(t, NewModuleSet(ModuleDashboard).Equal(reloaded.Modules(RoleWorker)))
}

func TestPolicyRefusesWriteWhileStoreUnreadable(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	seed := NewPolicy(store, nil)
	require.NoError(t, seed.Replace(ctx, RoleWorker, NewModuleSet(ModuleDashboard)))

	store.loadFailures = 2
	server := NewPolicy(store, nil)
	server.Load(ctx)

	err := server.Replace(ctx, RoleSupervisor, NewModuleSet(ModuleDashboard))
	require.ErrorContains(t, err, "redis timeout")

	reloaded := NewPolicy(store, nil)
	reloaded.Load(ctx)
	require.True(t, NewModuleSet(ModuleDashboard).Equal(reloaded.Modules(RoleWorker)))
	require.True(t, DefaultMatrix()[RoleSupervisor].Equal(reloaded.Modules(RoleSupervisor)))
}

func TestPolicyWatchStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore()
	policy := NewPolicy(store, nil)

	done := make(chan struct{})
	go func() {
		policy.Watch(ctx, 5*time.Millisecond)
		close(done)
	}()

	operator := NewPolicy(store, nil)
	require.NoError(t, operator.Replace(context.Background(), RoleWorker, NewModuleSet(ModuleReports)))
	require.Eventually(t, func() bool {
		return policy.Allows(RoleWorker, ModuleReports)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
