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
// 本檔案 (weightitem.go) 實作不放回的加權排列與 K 抽樣（Efraimidis-Spirakis）。
//
// 每個元素取分數 score = Exp(1) / w，分數越小排名越前；
// WeightedList.Shuffled / SampleDistinct 直接以它的權重陣列呼叫這裡。
//
// 注意：weight = 0 在 WeightedShuffle 中排到最後，在 K 抽樣中永不入選；
// 負權重視為程式錯誤並 panic。
package sampler

import (
	"cmp"
	"container/heap"
	"math"
	"slices"

	"github.com/zintix-labs/weightlab/sdk/core"
)

type weightItem struct {
	idx   int
	score float64
}

// weightHeap 是以 score 為鍵的 Max-Heap，堆頂為目前入選者中最差（分數最大）的一個。
type weightHeap []weightItem

func (h weightHeap) Len() int           { return len(h) }
func (h weightHeap) Less(i, j int) bool { return h[i].score > h[j].score }
func (h weightHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *weightHeap) Push(x any) { *h = append(*h, x.(weightItem)) }

func (h *weightHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// scoreOf 回傳單一元素的排序分數；ok=false 表示權重為 0。
func scoreOf[T Integers](c *core.Core, op string, w T) (float64, bool) {
	if w < 0 {
		panic(op + ": negative weight")
	}
	if w == 0 {
		return math.Inf(1), false
	}
	return c.ExpFloat64() / float64(w), true
}

func sortedIndices(items []weightItem) []int {
	slices.SortFunc(items, func(a, b weightItem) int {
		return cmp.Compare(a.score, b.score)
	})
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.idx
	}
	return out
}

// WeightedShuffle 回傳所有索引的加權隨機排列（不放回）。
//
// 時間 O(N log N)，空間 O(N)。
func WeightedShuffle[T Integers](c *core.Core, weights []T) []int {
	items := make([]weightItem, len(weights))
	for i, w := range weights {
		score, _ := scoreOf(c, "WeightedShuffle", w)
		items[i] = weightItem{idx: i, score: score}
	}
	return sortedIndices(items)
}

// WeightedSample 不放回地抽出最多 k 個索引，依排名先後回傳。
//
// 以容量 k 的 Max-Heap 保留分數最小的 k 個元素：時間 O(N log K)，空間 O(K)。
// 有效（> 0）權重數少於 k 時回傳長度會小於 k。
func WeightedSample[T Integers](c *core.Core, weights []T, k int) []int {
	if k <= 0 || len(weights) == 0 {
		return []int{}
	}
	k = min(k, len(weights))

	h := make(weightHeap, 0, k)
	for i, w := range weights {
		score, ok := scoreOf(c, "WeightedSample", w)
		if !ok {
			continue
		}
		switch {
		case h.Len() < k:
			heap.Push(&h, weightItem{idx: i, score: score})
		case score < h[0].score:
			// 直接換掉堆頂再 Fix，比 Pop + Push 少一次 log K
			h[0] = weightItem{idx: i, score: score}
			heap.Fix(&h, 0)
		}
	}

	out := make([]int, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(weightItem).idx
	}
	return out
}
