package weightlab_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/catalog"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/sdk/sampler"
	"github.com/zintix-labs/weightlab/snapshot"
)

var testFS = fstest.MapFS{
	"coins.yaml": {Data: []byte(`name: Coins
policy: reject_on_invalid
items:
  - name: copper
    weight: 6
  - name: silver
    weight: 3
  - name: gold
    weight: 1
`)},
	"loot.json": {Data: []byte(`{"name":"loot","policy":"clamp_to_one","items":[
		{"name":"potion","weight":4},{"name":"sword","weight":0},{"name":"egg","weight":5}]}`)},
}

func newLab(t *testing.T) *weightlab.Lab {
	t.Helper()
	lab, err := weightlab.New(core.Default(), weightlab.Configs(testFS))
	if err != nil {
		t.Fatalf("new lab: %v", err)
	}
	return lab
}

func TestNewLab(t *testing.T) {
	lab := newLab(t)
	if got := lab.Tables(); !slices.Equal(got, []string{"coins", "loot"}) {
		t.Fatalf("unexpected tables: %v", got)
	}
	ts, err := lab.Setting("loot")
	if err != nil || ts.WeightPolicy() != sampler.ClampToOne {
		t.Fatalf("unexpected loot setting: %+v %v", ts, err)
	}
	if _, err := lab.Setting("nope"); !errors.Is(err, catalog.ErrNoTable) {
		t.Fatalf("expected ErrNoTable, got %v", err)
	}

	if _, err := weightlab.New(nil, weightlab.Configs(testFS)); err == nil {
		t.Fatal("nil factory should fail")
	}
	if _, err := weightlab.New(core.Default(), nil); err == nil {
		t.Fatal("no configs should fail")
	}
	if _, err := weightlab.New(core.Default(), weightlab.Configs(fstest.MapFS{})); err == nil {
		t.Fatal("empty config fs should fail")
	}
}

func TestNewTableWithSeedDeterministic(t *testing.T) {
	lab := newLab(t)
	a, err := lab.NewTableWithSeed("loot", 42)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := lab.NewTableWithSeed("loot", 42)
	if a.TotalWeight() != 10 || a.MinWeight() != 1 {
		t.Fatalf("clamped loot table should total 10, got %d", a.TotalWeight())
	}
	for range 200 {
		if a.NextIndex() != b.NextIndex() {
			t.Fatal("same seed must produce the same draws")
		}
	}
}

func TestSimulatorDeterministic(t *testing.T) {
	lab := newLab(t)
	s1, err := lab.NewSimulatorWithSeed("coins", 7)
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := lab.NewSimulatorWithSeed("coins", 7)

	r1, _, err := s1.SimMP(5000, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	r2, _, _ := s2.SimMP(5000, 3, false)
	if r1.Summary.Rounds != 15000 || r1.Summary.Workers != 3 || r1.Summary.Seed != 7 {
		t.Fatalf("unexpected summary: %+v", r1.Summary)
	}
	for i := range r1.Items {
		if r1.Items[i].Count != r2.Items[i].Count {
			t.Fatalf("item %d differs: %d vs %d", i, r1.Items[i].Count, r2.Items[i].Count)
		}
	}

	if _, _, err := s1.SimMP(0, 1, false); err == nil {
		t.Fatal("rounds=0 should fail")
	}
	if _, _, err := s1.SimMP(10, 0, false); err == nil {
		t.Fatal("workers=0 should fail")
	}
}

func TestSimulatorDistribution(t *testing.T) {
	lab := newLab(t)
	s, _ := lab.NewSimulatorWithSeed("coins", 20251019)
	rep, _, err := s.Sim(200000, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.PValue < 1e-6 {
		t.Fatalf("draws do not follow weights: chi2=%.3f p=%g", rep.Summary.ChiSquare, rep.Summary.PValue)
	}
	want := []float64{0.6, 0.3, 0.1}
	for i, it := range rep.Items {
		if it.Expected != want[i] {
			t.Fatalf("item %s expected %v, got %v", it.Name, want[i], it.Expected)
		}
	}
}

func TestSimulatorDrain(t *testing.T) {
	lab := newLab(t)
	s, _ := lab.NewSimulatorWithSeed("loot", 99)
	d1, _, err := s.Drain()
	if err != nil {
		t.Fatal(err)
	}
	d2, _, _ := s.Drain()
	if !slices.Equal(d1.Order, d2.Order) {
		t.Fatal("drain with the same seed must repeat")
	}
	sorted := slices.Sorted(slices.Values(d1.Order))
	if !slices.Equal(sorted, []string{"egg", "potion", "sword"}) {
		t.Fatalf("every item must be drawn once: %v", d1.Order)
	}
	for i, name := range d1.Order {
		want := map[string]int32{"potion": 4, "sword": 1, "egg": 5}[name]
		if d1.Weights[i] != want {
			t.Fatalf("%s weight %d, want %d", name, d1.Weights[i], want)
		}
	}
}

func TestSimulatorDrainCanceled(t *testing.T) {
	lab := newLab(t)
	s, _ := lab.NewSimulatorWithSeed("loot", 99)
	if s.Size() != 3 {
		t.Fatalf("size %d, want 3", s.Size())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.DrainContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled drain should return context.Canceled, got %v", err)
	}
	// 未取消時照常完成
	d, _, err := s.DrainContext(context.Background())
	if err != nil || len(d.Order) != 3 {
		t.Fatalf("drain: %v %v", d, err)
	}
}

func TestSimulatorByConfig(t *testing.T) {
	lab := newLab(t)
	s, err := lab.NewSimulatorByYAML([]byte("name: trial\nitems:\n  - name: a\n    weight: 1\n"), 1)
	if err != nil {
		t.Fatal(err)
	}
	rep, _, err := s.Sim(100, false)
	if err != nil || rep.Items[0].Count != 100 {
		t.Fatalf("single item must always be drawn: %v", err)
	}
	if _, err := lab.NewSimulatorByJSON([]byte(`{"name":"bad","policy":"reject_on_invalid","items":[{"name":"a","weight":0}]}`), 1); err == nil {
		t.Fatal("zero weight under reject should fail")
	}
}

func newRuntime(t *testing.T) *weightlab.TableRuntime {
	t.Helper()
	rt, err := newLab(t).BuildRuntime()
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	t.Cleanup(rt.Close)
	return rt
}

func TestRuntimeLookupAndLifecycle(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	v, err := rt.View(ctx, "  COINS ", true)
	if err != nil || v.Count != 3 || v.TotalWeight != 10 {
		t.Fatalf("normalized lookup failed: %+v %v", v, err)
	}
	if _, err := rt.View(ctx, "nope", false); !errors.Is(err, weightlab.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := rt.Draw(canceled, "coins", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	rt.Close()
	rt.Close()
	if !rt.Closed() || rt.ClosedReason() != "closed" {
		t.Fatal("runtime should be closed")
	}
	if _, err := rt.Draw(ctx, "coins", 1); !errors.Is(err, weightlab.ErrRuntimeClosed) {
		t.Fatalf("expected ErrRuntimeClosed, got %v", err)
	}
}

func TestRuntimeMutations(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	if err := rt.SetWeight(ctx, "coins", "gold", 0); !errors.Is(err, sampler.ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight, got %v", err)
	}
	if err := rt.Add(ctx, "coins", "gold", 2); err == nil {
		t.Fatal("duplicate item should be rejected")
	}
	if err := rt.Add(ctx, "coins", "ruby", 2); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddWeightToAll(ctx, "coins", 1); err != nil {
		t.Fatal(err)
	}
	v, _ := rt.View(ctx, "coins", true)
	if v.Count != 4 || v.TotalWeight != 16 {
		t.Fatalf("unexpected view after mutations: %+v", v)
	}
	if err := rt.Remove(ctx, "coins", "nope"); !errors.Is(err, sampler.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for range 4 {
		if _, err := rt.DrawThenRemove(ctx, "coins"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := rt.DrawThenRemove(ctx, "coins"); !errors.Is(err, weightlab.ErrTableEmpty) {
		t.Fatalf("expected ErrTableEmpty, got %v", err)
	}
	if _, err := rt.Draw(ctx, "coins", 1); !errors.Is(err, weightlab.ErrTableEmpty) {
		t.Fatalf("expected ErrTableEmpty, got %v", err)
	}

	if err := rt.Reset(ctx, "coins"); err != nil {
		t.Fatal(err)
	}
	v, _ = rt.View(ctx, "coins", false)
	if v.Count != 3 || v.TotalWeight != 10 {
		t.Fatalf("reset should restore the config: %+v", v)
	}
}

func TestRuntimeConcurrentDraws(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 50 {
				if _, err := rt.Draw(ctx, "loot", 10); err != nil {
					t.Error(err)
					return
				}
				// 穿插變更，驗證每張表的鎖
				if g == 0 && i%10 == 0 {
					_ = rt.SetWeightOfAll(ctx, "loot", int32(i+1))
				}
			}
		}(g)
	}
	wg.Wait()
	if got := rt.Draws("loot"); got != 8*50*10 {
		t.Fatalf("expected %d draws, got %d", 8*50*10, got)
	}
}

func TestRuntimeSnapshotRestore(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	frame, err := rt.Snapshot(ctx, "loot")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := rt.Draw(ctx, "loot", 64)
	if err := rt.SetWeight(ctx, "loot", "egg", 100); err != nil {
		t.Fatal(err)
	}
	if err := rt.Restore(ctx, "loot", frame); err != nil {
		t.Fatal(err)
	}
	b, _ := rt.Draw(ctx, "loot", 64)
	if !slices.Equal(a.Items, b.Items) {
		t.Fatal("restore must rewind items and prng")
	}
	if err := rt.Restore(ctx, "coins", frame); err == nil {
		t.Fatal("snapshot of another table should be rejected")
	}
	if err := rt.Restore(ctx, "loot", []byte{0x7f}); err == nil {
		t.Fatal("corrupt frame should be rejected")
	}
}

func TestRuntimeRestoreRejectsDuplicateItems(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()
	before, _ := rt.View(ctx, "loot", true)

	for name, items := range map[string][]sampler.Item[string]{
		"duplicate": {{Value: "potion", Weight: 4}, {Value: "potion", Weight: 2}},
		"empty":     {{Value: "", Weight: 4}},
	} {
		l, err := sampler.NewFrom(core.New(core.Default().New(1)), sampler.ClampToOne, items)
		if err != nil {
			t.Fatal(err)
		}
		snap, err := snapshot.Capture("loot", l, false)
		if err != nil {
			t.Fatal(err)
		}
		frame, err := snapshot.Encode(snap)
		if err != nil {
			t.Fatal(err)
		}
		err = rt.Restore(ctx, "loot", frame)
		if err == nil || errs.Level(err) != errs.Warn {
			t.Fatalf("%s: expected warn error, got %v", name, err)
		}
	}
	after, _ := rt.View(ctx, "loot", true)
	if after.TotalWeight != before.TotalWeight || after.Count != before.Count {
		t.Fatalf("rejected restore changed the table: %+v -> %+v", before, after)
	}
}

func TestSimulatorSnapshotIntoRuntime(t *testing.T) {
	for _, name := range []string{"pcg64", "pcg32"} {
		f, err := core.ParseFactory(name)
		if err != nil {
			t.Fatal(err)
		}
		lab, err := weightlab.New(f, weightlab.Configs(testFS))
		if err != nil {
			t.Fatal(err)
		}
		s, _ := lab.NewSimulatorWithSeed("loot", 21)
		var buf bytes.Buffer
		if err := s.WriteSnapshot(&buf); err != nil {
			t.Fatal(err)
		}

		rt, err := lab.BuildRuntime()
		if err != nil {
			t.Fatal(err)
		}
		ctx := context.Background()
		if err := rt.RestoreFrom(ctx, "loot", &buf); err != nil {
			t.Fatalf("%s: restore: %v", name, err)
		}
		got, _ := rt.Draw(ctx, "loot", 32)

		// 還原後的序列等同同 seed 新建的表
		wl, _ := lab.NewTableWithSeed("loot", 21)
		for i, item := range got.Items {
			if want, _ := wl.Next(); item != want {
				t.Fatalf("%s: draw %d got %s, want %s", name, i, item, want)
			}
		}

		if err := rt.RestoreFrom(ctx, "loot", bytes.NewReader([]byte{0x40, 1, 2})); !errors.Is(err, snapshot.ErrCorrupt) {
			t.Fatalf("%s: truncated stream should be ErrCorrupt, got %v", name, err)
		}
		rt.Close()
	}
}
