// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sampler

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/zintix-labs/weightlab/errs"
)

// checkListInvariants 驗證 WeightedList 的推導值與權重陣列一致
func checkListInvariants[T comparable](t *testing.T, l *WeightedList[T]) {
	t.Helper()
	ws := l.Weights()
	if len(ws) != l.Count() || len(l.Items()) != l.Count() {
		t.Fatalf("parallel slices out of sync: items=%d weights=%d count=%d", len(l.Items()), len(ws), l.Count())
	}
	if l.Count() == 0 {
		if l.TotalWeight() != 0 || l.MinWeight() != 0 || l.MaxWeight() != 0 || l.AllIdentical() {
			t.Fatalf("empty list has non-zero derived values: %s", l)
		}
		return
	}
	total, lo, hi := 0, int32(math.MaxInt32), int32(0)
	for _, w := range ws {
		if w <= 0 {
			t.Fatalf("non-positive weight stored: %d", w)
		}
		total += int(w)
		lo, hi = min(lo, w), max(hi, w)
	}
	if total != l.TotalWeight() || lo != l.MinWeight() || hi != l.MaxWeight() {
		t.Fatalf("derived mismatch: total=%d/%d min=%d/%d max=%d/%d", total, l.TotalWeight(), lo, l.MinWeight(), hi, l.MaxWeight())
	}
	if (lo == hi) != l.AllIdentical() {
		t.Fatalf("AllIdentical=%v but min=%d max=%d", l.AllIdentical(), lo, hi)
	}
}

func drawIndices[T comparable](l *WeightedList[T], n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = l.NextIndex()
	}
	return out
}

// TestWeightedList_Scenario [(A,1),(B,1),(C,2)] 的推導值與 SetWeightOfAll
func TestWeightedList_Scenario(t *testing.T) {
	l, err := NewFrom(seeded(42), ClampToOne, []Item[string]{{"A", 1}, {"B", 1}, {"C", 2}})
	if err != nil {
		t.Fatal(err)
	}
	checkListInvariants(t, l)
	if l.TotalWeight() != 4 || l.MinWeight() != 1 || l.MaxWeight() != 2 || l.AllIdentical() {
		t.Fatalf("unexpected derived values: %s", l)
	}
	checkDistribution(t, "Scenario", l.Weights(), drawIndices(l, 80000), 0.01)

	if err := l.SetWeightOfAll(5); err != nil {
		t.Fatal(err)
	}
	checkListInvariants(t, l)
	if l.TotalWeight() != 15 || !l.AllIdentical() {
		t.Fatalf("expected total 15 and identical, got %s", l)
	}
	checkDistribution(t, "Scenario uniform", l.Weights(), drawIndices(l, 60000), 0.01)
}

// TestWeightedList_Conservation Next 不改變清單
func TestWeightedList_Conservation(t *testing.T) {
	l, _ := NewFrom(seeded(1), ClampToOne, []Item[int]{{10, 3}, {20, 5}, {30, 2}})
	before := l.Pairs()
	for range 1000 {
		v, ok := l.Next()
		if !ok || !slices.Contains([]int{10, 20, 30}, v) {
			t.Fatalf("unexpected draw %v %v", v, ok)
		}
	}
	if !slices.Equal(before, l.Pairs()) {
		t.Fatal("Next mutated the list")
	}
}

// TestWeightedList_Proportionality 頻率比例接近權重比例，並在變更後跟著改變
func TestWeightedList_Proportionality(t *testing.T) {
	l := New[rune](seeded(5))
	for i, w := range []int32{1, 4, 10, 25} {
		if err := l.Add(rune('a'+i), w); err != nil {
			t.Fatal(err)
		}
	}
	checkDistribution(t, "Add", l.Weights(), drawIndices(l, 100000), 0.01)

	if err := l.SetWeight('a', 25); err != nil {
		t.Fatal(err)
	}
	if err := l.RemoveAt(2); err != nil {
		t.Fatal(err)
	}
	checkListInvariants(t, l)
	checkDistribution(t, "After mutation", l.Weights(), drawIndices(l, 100000), 0.01)
}

// TestWeightedList_NextThenRemove 每次抽完數量減一，最後全部抽完
func TestWeightedList_NextThenRemove(t *testing.T) {
	l, _ := NewFrom(seeded(8), ClampToOne, []Item[string]{{"x", 1}, {"y", 9}, {"x", 4}, {"z", 2}})
	seen := map[string]int{}
	for want := 3; want >= 0; want-- {
		v, ok := l.NextThenRemove()
		if !ok {
			t.Fatal("expected a draw")
		}
		seen[v]++
		if l.Count() != want {
			t.Fatalf("count=%d want %d", l.Count(), want)
		}
		checkListInvariants(t, l)
	}
	if seen["x"] != 2 || seen["y"] != 1 || seen["z"] != 1 {
		t.Fatalf("unexpected removal multiset: %v", seen)
	}
	if _, ok := l.NextThenRemove(); ok {
		t.Fatal("expected empty list to return false")
	}
}

// TestWeightedList_NextThenRemoveFollowsDraw 移除的必須是抽到的索引（含權重）
func TestWeightedList_NextThenRemoveFollowsDraw(t *testing.T) {
	src := []Item[string]{{"a", 1}, {"b", 50}, {"c", 3}}
	peek, _ := NewFrom(seeded(77), ClampToOne, src)
	idx := peek.NextIndex()

	l, _ := NewFrom(seeded(77), ClampToOne, src)
	v, _ := l.NextThenRemove()
	if v != src[idx].Value {
		t.Fatalf("drew %q, expected %q", v, src[idx].Value)
	}
	if l.TotalWeight() != 54-int(src[idx].Weight) {
		t.Fatalf("weight of drawn item not removed: total=%d", l.TotalWeight())
	}
}

// TestWeightedList_RoundTrip Pairs 交給 NewFrom 應得到相同結構
// TestWeightedList_PairsRoundTrip Pairs 可以原樣重建清單
func TestWeightedList_PairsRoundTrip(t *testing.T) {
	l, _ := NewFrom(seeded(1), ClampToOne, []Item[string]{{"a", 2}, {"b", 0}, {"a", 7}})
	back, err := NewFrom(seeded(1), RejectOnInvalid, l.Pairs())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(l.Pairs(), back.Pairs()) || l.TotalWeight() != back.TotalWeight() {
		t.Fatalf("round trip mismatch: %s vs %s", l, back)
	}
	if w, _ := l.GetWeightAtIndex(1); w != 1 {
		t.Fatalf("clamped weight = %d, want 1", w)
	}
}

// TestWeightedList_RejectLeavesStateUnchanged 拒絕時清單與分佈完全不變
func TestWeightedList_RejectLeavesStateUnchanged(t *testing.T) {
	l, _ := NewFrom(seeded(3), RejectOnInvalid, []Item[string]{{"a", 2}, {"b", 5}})
	before := l.String()

	ops := map[string]func() error{
		"Add":             func() error { return l.Add("c", 0) },
		"AddItems":        func() error { return l.AddItems([]Item[string]{{"c", 3}, {"d", -1}}) },
		"Insert":          func() error { return l.Insert(1, "c", -4) },
		"SetWeight":       func() error { return l.SetWeight("a", 0) },
		"SetWeightAt":     func() error { return l.SetWeightAtIndex(1, -1) },
		"SetWeightOfAll":  func() error { return l.SetWeightOfAll(0) },
		"AddWeightToAll":  func() error { return l.AddWeightToAll(-2) },
		"SubtractFromAll": func() error { return l.SubtractWeightFromAll(2) },
	}
	for name, op := range ops {
		err := op()
		if !errors.Is(err, ErrInvalidWeight) {
			t.Errorf("%s: expected ErrInvalidWeight, got %v", name, err)
		}
		if errs.Level(err) != errs.Warn {
			t.Errorf("%s: expected warn level, got %v", name, errs.Level(err))
		}
		if l.String() != before {
			t.Fatalf("%s mutated the list: %s", name, l)
		}
	}

	// delta + min = 1 仍合法
	if err := l.SubtractWeightFromAll(1); err != nil {
		t.Fatal(err)
	}
	if l.MinWeight() != 1 || l.MaxWeight() != 4 {
		t.Fatalf("unexpected weights after subtract: %s", l)
	}
}

// TestWeightedList_ClampBulk ClampToOne 下批次減權重個別夾到 1
func TestWeightedList_ClampBulk(t *testing.T) {
	l, _ := NewFrom(seeded(3), ClampToOne, []Item[int]{{1, 2}, {2, 10}, {3, 6}})
	if err := l.SubtractWeightFromAll(5); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(l.Weights(), []int32{1, 5, 1}) {
		t.Fatalf("weights = %v", l.Weights())
	}
	if err := l.AddWeightToAll(math.MaxInt32); !errors.Is(err, ErrWeightOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	checkListInvariants(t, l)
}

// TestWeightedList_IndexAndLookupErrors 索引越界與找不到的錯誤
func TestWeightedList_IndexAndLookupErrors(t *testing.T) {
	l, _ := NewFrom(seeded(3), ClampToOne, []Item[string]{{"a", 1}})

	if err := l.Insert(2, "b", 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Insert(2): %v", err)
	}
	if err := l.Insert(1, "b", 1); err != nil {
		t.Errorf("Insert at Count should append: %v", err)
	}
	if err := l.Insert(0, "z", 3); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(l.Items(), []string{"z", "a", "b"}) {
		t.Fatalf("items = %v", l.Items())
	}
	for _, idx := range []int{-1, 3} {
		if err := l.RemoveAt(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("RemoveAt(%d): %v", idx, err)
		}
		if _, err := l.At(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("At(%d): %v", idx, err)
		}
		if _, err := l.GetWeightAtIndex(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("GetWeightAtIndex(%d): %v", idx, err)
		}
	}
	if err := l.Remove("q"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove: %v", err)
	}
	if err := l.SetWeight("q", 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetWeight: %v", err)
	}
	if _, err := l.GetWeightOf("q"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetWeightOf: %v", err)
	}
	if !l.Contains("a") || l.Contains("q") || l.IndexOf("b") != 2 {
		t.Error("lookup mismatch")
	}
	if w, err := l.GetWeightOf("z"); err != nil || w != 3 {
		t.Errorf("GetWeightOf(z) = %d, %v", w, err)
	}
	checkListInvariants(t, l)
}

// TestWeightedList_Empty 空清單的行為
func TestWeightedList_Empty(t *testing.T) {
	l := New[string](seeded(1))
	checkListInvariants(t, l)
	if _, ok := l.Next(); ok {
		t.Error("Next on empty list should return false")
	}
	if l.NextIndex() != -1 {
		t.Error("NextIndex on empty list should return -1")
	}
	if err := l.AddWeightToAll(-100); err != nil {
		t.Errorf("AddWeightToAll on empty list: %v", err)
	}
	if len(l.Shuffled()) != 0 || len(l.SampleDistinct(3)) != 0 {
		t.Error("expected empty shuffles")
	}

	_ = l.Add("a", 3)
	l.Clear()
	checkListInvariants(t, l)
	if _, ok := l.Next(); ok {
		t.Error("Next after Clear should return false")
	}
	// Clear 之後仍可正常加入與抽樣
	if err := l.Add("b", 2); err != nil {
		t.Fatal(err)
	}
	if v, ok := l.Next(); !ok || v != "b" {
		t.Fatalf("Next after re-add = %q, %v", v, ok)
	}
	checkListInvariants(t, l)
}

// TestWeightedList_AddRemoveAtRoundTrip Add 後立刻 RemoveAt 同一索引，推導值回到原狀
func TestWeightedList_AddRemoveAtRoundTrip(t *testing.T) {
	l, _ := NewFrom(seeded(5), RejectOnInvalid, []Item[string]{{"copper", 55}, {"silver", 25}, {"gold", 12}})
	type derived struct {
		count, total int
		lo, hi       int32
	}
	snap := func() derived { return derived{l.Count(), l.TotalWeight(), l.MinWeight(), l.MaxWeight()} }
	before := snap()

	for _, w := range []int32{1, 12, 200} {
		if err := l.Add("diamond", w); err != nil {
			t.Fatal(err)
		}
		if err := l.RemoveAt(l.Count() - 1); err != nil {
			t.Fatal(err)
		}
		if got := snap(); got != before {
			t.Fatalf("weight %d: derived %+v, want %+v", w, got, before)
		}
		checkListInvariants(t, l)
	}

	// 空清單也成立
	e := New[string](seeded(5))
	_ = e.Add("x", 9)
	_ = e.RemoveAt(0)
	checkListInvariants(t, e)
}

// TestWeightedList_ClampSetWeight ClampToOne 下 SetWeight 寫入 <= 0 一律存成 1
func TestWeightedList_ClampSetWeight(t *testing.T) {
	l, _ := NewFrom(seeded(6), ClampToOne, []Item[string]{{"potion", 400}, {"arrow", 350}})
	for _, w := range []int32{0, -3, math.MinInt32} {
		if err := l.SetWeight("arrow", w); err != nil {
			t.Fatalf("SetWeight(%d): %v", w, err)
		}
		if got, _ := l.GetWeightOf("arrow"); got != 1 {
			t.Fatalf("SetWeight(%d) stored %d, want 1", w, got)
		}
		if l.TotalWeight() != 401 || l.MinWeight() != 1 {
			t.Fatalf("derived after SetWeight(%d): %s", w, l)
		}
	}
	if err := l.SetWeightAtIndex(0, -1); err != nil {
		t.Fatal(err)
	}
	if !l.AllIdentical() || l.TotalWeight() != 2 {
		t.Fatalf("both weights should be 1: %s", l)
	}
	checkListInvariants(t, l)
}

// TestWeightedList_CloneIndependent Clone 之後的變更互不影響
func TestWeightedList_CloneIndependent(t *testing.T) {
	l, _ := NewFrom(seeded(1), ClampToOne, []Item[int]{{1, 1}, {2, 2}})
	cp := l.Clone(seeded(2))
	if err := cp.Add(3, 3); err != nil {
		t.Fatal(err)
	}
	if l.Count() != 2 || cp.Count() != 3 {
		t.Fatalf("clone shares state: %s / %s", l, cp)
	}
	checkListInvariants(t, l)
	checkListInvariants(t, cp)
}

// TestWeightedList_SampleDistinct 抽出的位置互不重複
func TestWeightedList_SampleDistinct(t *testing.T) {
	l, _ := NewFrom(seeded(4), ClampToOne, []Item[int]{{1, 5}, {2, 1}, {3, 9}, {4, 2}})
	got := l.SampleDistinct(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %v", got)
	}
	slices.Sort(got)
	if len(slices.Compact(got)) != 3 {
		t.Fatalf("duplicate items: %v", got)
	}
	if all := l.Shuffled(); len(all) != 4 {
		t.Fatalf("Shuffled length = %d", len(all))
	}
	for i, v := range l.All() {
		if at, _ := l.At(i); at != v {
			t.Fatalf("All() index %d mismatch", i)
		}
	}
}

func TestWeightedList_Probability(t *testing.T) {
	l, _ := NewFrom(seeded(4), ClampToOne, []Item[int]{{1, 1}, {2, 3}})
	if p := l.Probability(1); p != 0.75 {
		t.Fatalf("Probability(1) = %v", p)
	}
	if l.Probability(5) != 0 {
		t.Fatal("out of range probability should be 0")
	}
}
