package access

import (
	"context"
	"sync"
	"testing"
)

func BenchmarkCanAccessParallel(b *testing.B) {
	policy := NewPolicy(NewMemoryStore(), nil)
	policy.Load(context.Background())
	modules := AllModules()

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		control := NewControl(policy, RoleSupervisor)
		i := 0
		for pb.Next() {
			_ = control.CanAccess(modules[i%len(modules)])
			i++
		}
	})
}

func TestPolicyReadsDuringWrites(t *testing.T) {
	policy := NewPolicy(NewMemoryStore(), nil)
	policy.Load(context.Background())
	admin := NewControl(policy, RoleAdmin)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker := NewControl(policy, RoleWorker)
			for i := 0; i < 200; i++ {
				// Either the default or the granted set, never a partial one.
				n := len(worker.AccessibleModules())
				if n != 3 && n != 4 {
					t.Errorf("unexpected module count %d", n)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		grant := NewModuleSet(ModuleDashboard, ModuleTimeTracking, ModuleProduction)
		if i%2 == 0 {
			grant = NewModuleSet(ModuleDashboard, ModuleTimeTracking, ModuleProduction, ModuleInventory)
		}
		if err := admin.UpdatePermissions(ctx, RoleWorker, grant); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
}
