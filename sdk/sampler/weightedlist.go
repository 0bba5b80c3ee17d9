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

// Package sampler 提供一系列高效能的加權抽樣演算法與工具。
//
// 本檔案 (weightedlist.go) 實作可動態修改的加權清單 WeightedList。
//
// 設計目的：
//   - AliasTable 是「建一次、抽很多次」的靜態結構；WeightedList 在它外面包一層可變的清單，
//     讓呼叫端可以隨時新增、刪除、改權重，而抽樣仍維持 O(1)。
//   - 任何變更都會以 O(N) 重建 AliasTable；讀取與抽樣不重建。
//
// 錯誤保證：
//   - 每個變更操作先產生候選的 items / weights 並建好新表，成功後才一次替換。
//     失敗時（ErrInvalidWeight / ErrIndexOutOfRange / ErrNotFound / ErrWeightOverflow）
//     清單與抽樣分佈完全不變，不會有部分寫入。
//
// 併發：
//   - WeightedList 不是 thread-safe，抽樣也會推進內部 Core 的狀態。
//     多 goroutine 使用時需由呼叫端以鎖序列化，或每個 worker 持有自己的 Clone。

package sampler

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
)

// Item 是 (項目, 權重) 配對，用於批次建構與快照。
type Item[T any] struct {
	Value  T     `json:"value" yaml:"value"`
	Weight int32 `json:"weight" yaml:"weight"`
}

// WeightedList 是支援 O(1) 加權抽樣的可變清單。
//
// items 與 weights 平行且以索引定址，允許重複項目；
// table 由 weights 推導，每次變更後重建。
type WeightedList[T comparable] struct {
	items   []T
	weights []int32
	table   *AliasTable
	policy  WeightPolicy
	core    *core.Core
}

// New 建立空清單，策略為 ClampToOne。c 為 nil 時使用加密亂數播種的預設 Core。
func New[T comparable](c *core.Core) *WeightedList[T] {
	return NewWithPolicy[T](c, ClampToOne)
}

// NewWithPolicy 建立指定策略的空清單。
func NewWithPolicy[T comparable](c *core.Core, policy WeightPolicy) *WeightedList[T] {
	if c == nil {
		c = core.NewRandom()
	}
	return &WeightedList[T]{
		items:   []T{},
		weights: []int32{},
		table:   emptyTable(),
		policy:  policy,
		core:    c,
	}
}

// NewFrom 以批次資料建立清單；所有權重先經過策略，最後只重建一次。
func NewFrom[T comparable](c *core.Core, policy WeightPolicy, src []Item[T]) (*WeightedList[T], error) {
	l := NewWithPolicy[T](c, policy)
	if err := l.AddItems(src); err != nil {
		return nil, err
	}
	return l, nil
}

// ============================================================
// ** 抽樣 **
// ============================================================

// Next 依權重抽出一個項目，不改變清單。清單為空時回傳 (zero, false)。
func (l *WeightedList[T]) Next() (T, bool) {
	idx := l.table.Pick(l.core)
	if idx < 0 {
		var zero T
		return zero, false
	}
	return l.items[idx], true
}

// NextIndex 依權重抽出一個索引，清單為空回傳 -1。
func (l *WeightedList[T]) NextIndex() int {
	return l.table.Pick(l.core)
}

// NextThenRemove 抽出一個項目後，以「抽中的索引」將它移除並重建。
// 有重複項目時移除的就是被抽中的那一個，而不是第一個相等的值。
func (l *WeightedList[T]) NextThenRemove() (T, bool) {
	idx := l.table.Pick(l.core)
	if idx < 0 {
		var zero T
		return zero, false
	}
	item := l.items[idx]
	if err := l.RemoveAt(idx); err != nil {
		// 移除只會讓總和變小，建表不可能失敗
		panic("WeightedList: remove after draw: " + err.Error())
	}
	return item, true
}

// Shuffled 回傳依權重排列的所有項目（不放回），權重越大越可能排前面。
func (l *WeightedList[T]) Shuffled() []T {
	return l.pickItems(WeightedShuffle(l.core, l.weights))
}

// SampleDistinct 依權重不放回地抽出最多 k 個不同位置的項目。
func (l *WeightedList[T]) SampleDistinct(k int) []T {
	return l.pickItems(WeightedSample(l.core, l.weights, k))
}

func (l *WeightedList[T]) pickItems(order []int) []T {
	out := make([]T, len(order))
	for i, idx := range order {
		out[i] = l.items[idx]
	}
	return out
}

// ============================================================
// ** 變更 **
// ============================================================

// Add 將項目加到尾端。
func (l *WeightedList[T]) Add(item T, weight int32) error {
	w, err := l.policy.Fix(weight)
	if err != nil {
		return errs.WrapWithExtra(err, "add", fmt.Sprintf("weight=%d", weight))
	}
	items := append(slices.Clip(l.items), item)
	weights := append(slices.Clip(l.weights), w)
	return l.commit(items, weights)
}

// AddItems 批次加到尾端，任一權重不合法則整批不加入。
func (l *WeightedList[T]) AddItems(src []Item[T]) error {
	items := make([]T, len(l.items), len(l.items)+len(src))
	weights := make([]int32, len(l.weights), len(l.weights)+len(src))
	copy(items, l.items)
	copy(weights, l.weights)
	for i, it := range src {
		w, err := l.policy.Fix(it.Weight)
		if err != nil {
			return errs.WrapWithExtra(err, "add items", fmt.Sprintf("pos=%d weight=%d", i, it.Weight))
		}
		items = append(items, it.Value)
		weights = append(weights, w)
	}
	return l.commit(items, weights)
}

// Insert 插入到 index，之後的索引往後移。index 可等於 Count（等同 Add）。
func (l *WeightedList[T]) Insert(index int, item T, weight int32) error {
	if index < 0 || index > len(l.items) {
		return errs.WrapWithExtra(ErrIndexOutOfRange, "insert", fmt.Sprintf("index=%d count=%d", index, len(l.items)))
	}
	w, err := l.policy.Fix(weight)
	if err != nil {
		return errs.WrapWithExtra(err, "insert", fmt.Sprintf("index=%d weight=%d", index, weight))
	}
	items := slices.Insert(slices.Clip(l.items), index, item)
	weights := slices.Insert(slices.Clip(l.weights), index, w)
	return l.commit(items, weights)
}

// Remove 移除第一個等於 item 的項目，不存在時回傳 ErrNotFound。
func (l *WeightedList[T]) Remove(item T) error {
	idx := l.IndexOf(item)
	if idx < 0 {
		return errs.WrapWithExtra(ErrNotFound, "remove", fmt.Sprintf("item=%v", item))
	}
	return l.RemoveAt(idx)
}

// RemoveAt 移除指定索引。
func (l *WeightedList[T]) RemoveAt(index int) error {
	if err := l.checkIndex("remove at", index); err != nil {
		return err
	}
	items := slices.Delete(slices.Clone(l.items), index, index+1)
	weights := slices.Delete(slices.Clone(l.weights), index, index+1)
	return l.commit(items, weights)
}

// Clear 清空清單，所有推導值歸零。
func (l *WeightedList[T]) Clear() {
	l.items, l.weights, l.table = []T{}, []int32{}, emptyTable()
}

// SetWeight 設定第一個等於 item 的項目權重。
func (l *WeightedList[T]) SetWeight(item T, weight int32) error {
	idx := l.IndexOf(item)
	if idx < 0 {
		return errs.WrapWithExtra(ErrNotFound, "set weight", fmt.Sprintf("item=%v", item))
	}
	return l.SetWeightAtIndex(idx, weight)
}

// SetWeightAtIndex 設定指定索引的權重。
func (l *WeightedList[T]) SetWeightAtIndex(index int, weight int32) error {
	if err := l.checkIndex("set weight at index", index); err != nil {
		return err
	}
	w, err := l.policy.Fix(weight)
	if err != nil {
		return errs.WrapWithExtra(err, "set weight at index", fmt.Sprintf("index=%d weight=%d", index, weight))
	}
	weights := slices.Clone(l.weights)
	weights[index] = w
	return l.commit(l.items, weights)
}

// AddWeightToAll 所有權重加上 delta，只重建一次。
//
// RejectOnInvalid 下以目前最小權重預先檢查：delta + Min <= 0 時整批拒絕，不修改任何權重。
// ClampToOne 下 <= 0 的結果各自改成 1。
func (l *WeightedList[T]) AddWeightToAll(delta int32) error {
	return l.addWeightToAll(int64(delta))
}

// SubtractWeightFromAll 等同 AddWeightToAll(-delta)。
func (l *WeightedList[T]) SubtractWeightFromAll(delta int32) error {
	return l.addWeightToAll(-int64(delta))
}

func (l *WeightedList[T]) addWeightToAll(delta int64) error {
	if len(l.weights) == 0 {
		return nil
	}
	if l.policy == RejectOnInvalid && delta+int64(l.table.Min) <= 0 {
		return errs.WrapWithExtra(ErrInvalidWeight, "add weight to all", fmt.Sprintf("delta=%d min=%d", delta, l.table.Min))
	}
	weights := make([]int32, len(l.weights))
	for i, w := range l.weights {
		fw, err := l.policy.fix(int64(w) + delta)
		if err != nil {
			return errs.WrapWithExtra(err, "add weight to all", fmt.Sprintf("index=%d delta=%d", i, delta))
		}
		weights[i] = fw
	}
	return l.commit(l.items, weights)
}

// SetWeightOfAll 將所有權重設為同一值，結果必為 Uniform。
func (l *WeightedList[T]) SetWeightOfAll(weight int32) error {
	w, err := l.policy.Fix(weight)
	if err != nil {
		return errs.WrapWithExtra(err, "set weight of all", fmt.Sprintf("weight=%d", weight))
	}
	weights := make([]int32, len(l.weights))
	for i := range weights {
		weights[i] = w
	}
	return l.commit(l.items, weights)
}

// SetPolicy 切換策略，只影響之後寫入的權重（既有權重在兩種策略下都已經 > 0）。
func (l *WeightedList[T]) SetPolicy(p WeightPolicy) {
	l.policy = p
}

// commit 以候選資料建表，成功才替換；失敗時清單維持原狀。
func (l *WeightedList[T]) commit(items []T, weights []int32) error {
	at, err := newAliasTable(weights)
	if err != nil {
		return err
	}
	l.items, l.weights, l.table = items, weights, at
	return nil
}

func (l *WeightedList[T]) checkIndex(op string, index int) error {
	if index < 0 || index >= len(l.items) {
		return errs.WrapWithExtra(ErrIndexOutOfRange, op, fmt.Sprintf("index=%d count=%d", index, len(l.items)))
	}
	return nil
}

// ============================================================
// ** 讀取 **
// ============================================================

func (l *WeightedList[T]) Count() int { return len(l.items) }

func (l *WeightedList[T]) TotalWeight() int { return l.table.Total }

func (l *WeightedList[T]) MinWeight() int32 { return int32(l.table.Min) }

func (l *WeightedList[T]) MaxWeight() int32 { return int32(l.table.Max) }

// AllIdentical 回報所有權重是否相同（空清單為 false）。
func (l *WeightedList[T]) AllIdentical() bool { return l.table.Uniform }

func (l *WeightedList[T]) Policy() WeightPolicy { return l.policy }

// At 回傳指定索引的項目。
func (l *WeightedList[T]) At(index int) (T, error) {
	if err := l.checkIndex("at", index); err != nil {
		var zero T
		return zero, err
	}
	return l.items[index], nil
}

// IndexOf 回傳第一個等於 item 的索引，不存在回傳 -1。
func (l *WeightedList[T]) IndexOf(item T) int {
	return slices.Index(l.items, item)
}

func (l *WeightedList[T]) Contains(item T) bool {
	return l.IndexOf(item) >= 0
}

// GetWeightOf 回傳第一個等於 item 的項目權重。
func (l *WeightedList[T]) GetWeightOf(item T) (int32, error) {
	idx := l.IndexOf(item)
	if idx < 0 {
		return 0, errs.WrapWithExtra(ErrNotFound, "get weight of", fmt.Sprintf("item=%v", item))
	}
	return l.weights[idx], nil
}

// GetWeightAtIndex 回傳指定索引的權重。
func (l *WeightedList[T]) GetWeightAtIndex(index int) (int32, error) {
	if err := l.checkIndex("get weight at index", index); err != nil {
		return 0, err
	}
	return l.weights[index], nil
}

// Probability 回傳索引 i 被抽中的理論機率 weight/total，越界回傳 0。
func (l *WeightedList[T]) Probability(index int) float64 {
	if index < 0 || index >= len(l.weights) || l.table.Total == 0 {
		return 0
	}
	return float64(l.weights[index]) / float64(l.table.Total)
}

// Items 回傳項目的複本。
func (l *WeightedList[T]) Items() []T { return slices.Clone(l.items) }

// Weights 回傳權重的複本。
func (l *WeightedList[T]) Weights() []int32 { return slices.Clone(l.weights) }

// Pairs 回傳 (項目, 權重) 的複本，可直接交給 NewFrom 重建。
func (l *WeightedList[T]) Pairs() []Item[T] {
	out := make([]Item[T], len(l.items))
	for i := range l.items {
		out[i] = Item[T]{Value: l.items[i], Weight: l.weights[i]}
	}
	return out
}

// All 依索引順序走訪 (index, item)。
func (l *WeightedList[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, it := range l.items {
			if !yield(i, it) {
				return
			}
		}
	}
}

// Clone 複製清單並改用 c 抽樣（c 為 nil 時使用預設 Core）。
// 平行模擬時每個 worker 持有自己的 Clone。
func (l *WeightedList[T]) Clone(c *core.Core) *WeightedList[T] {
	if c == nil {
		c = core.NewRandom()
	}
	return &WeightedList[T]{
		items:   slices.Clone(l.items),
		weights: slices.Clone(l.weights),
		table:   l.table,
		policy:  l.policy,
		core:    c,
	}
}

// Core 回傳清單使用的亂數核心（快照時保存其狀態）。
func (l *WeightedList[T]) Core() *core.Core { return l.core }

func (l *WeightedList[T]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "WeightedList[%T]: TotalWeight:%d, Min:%d, Max:%d, Count:%d, {",
		*new(T), l.table.Total, l.table.Min, l.table.Max, len(l.items))
	for i := range l.items {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v:%d", l.items[i], l.weights[i])
	}
	sb.WriteString("}")
	return sb.String()
}
