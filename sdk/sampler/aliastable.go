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
// 本檔案 (aliastable.go) 實作了 Vose's Alias Method 加權抽樣演算法 (整數優化版)。
//
// 演算法原理：
//   - 將任意離散分佈轉換為均勻分佈的組合。
//   - 每個槽位 (Bucket) 只存放「自己」和「別名 (Alias)」兩個選項。
//   - 抽樣時先選槽位，再根據機率決定是自己還是別名。
//
// 特性：
//   - 建表時間：O(N)，不做任何亂數抽取，相同輸入順序必得相同的表。
//   - 抽樣時間：O(1)，固定 2 次 IntN；權重全部相同時退化為 1 次。
//   - 空間複雜度：O(N)，**與權重總和無關**。
//
// 實作細節：
//   - 採用全整數運算 (Integer Scaling)，避免浮點數精度誤差 (0.999... != 1.0)。
//   - 建表前檢查 Total*N 是否溢位。

package sampler

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
)

// AliasTable 是 Vose Alias Method 的 O(1) 加權抽樣結構（整數版本）。
//
// 結構欄位說明：
//   - Prob: 每個槽位「選自己」的門檻，範圍 [0, Total]；抽 IntN(Total) < Prob[i] 即選 i。
//   - Aliases: 門檻未命中時改選的索引。
//   - Size: 元素數量。
//   - Total / Min / Max: 權重總和、最小、最大值。
//   - Uniform: Min == Max，所有槽位等機率，Prob/Aliases 不會被查詢。
//
// AliasTable 建好後不再原地修改，可以安全地被多個 WeightedList 共用（例如 Clone 之後）。
type AliasTable struct {
	Prob    []int
	Aliases []int
	Size    int
	Total   int
	Min     int
	Max     int
	Uniform bool
}

// emptyTable 是零個項目的表：Total、Min、Max 皆為 0。
func emptyTable() *AliasTable {
	return &AliasTable{Prob: []int{}, Aliases: []int{}}
}

// newAliasTable 根據輸入的權重(weights)建立 AliasTable。
//
// 輸入 weights 說明：
//   - 任意非負整數權重，不需事先正規化。
//   - 權重可為零（該項永不被抽中），但全部為零回傳 ErrInvalidWeight。
//   - 負權重回傳 ErrInvalidWeight，總和溢位回傳 ErrWeightOverflow。
//
// 演算法流程條列：
//  1. 累加 Total、Min、Max；n == 0 時回傳空表。
//  2. Min == Max 時標記 Uniform 並結束（不需要別名表）。
//  3. 將每個權重 w 乘以 n 做整數 scaling，得到 scaled[i]。
//  4. 依 scaled[i] 與 Total 比較，分到 small (<Total) 或 large (>=Total)。
//  5. 各取一個 s、l：Prob[s] = scaled[s]、Aliases[s] = l，
//     l 捐出 s 的不足量：scaled[l] += scaled[s] - Total，再依新值重新分類。
//  6. 任一桶清空後，剩下的槽位 Prob = Total（永遠選自己）。
func newAliasTable[T Integers](weights []T) (*AliasTable, error) {
	n := len(weights)
	if n == 0 {
		return emptyTable(), nil
	}

	total := uint64(0)
	minW, maxW := uint64(math.MaxUint64), uint64(0)
	for i, w := range weights {
		if w < 0 {
			return nil, errs.WrapWithExtra(ErrInvalidWeight, "negative weight encountered", fmt.Sprintf("index=%d", i))
		}
		uw := uint64(w)
		if uw > uint64(math.MaxInt) || total > uint64(math.MaxInt)-uw {
			return nil, errs.WrapWithExtra(ErrWeightOverflow, "total weight overflow int range", fmt.Sprintf("index=%d", i))
		}
		total += uw
		minW = min(minW, uw)
		maxW = max(maxW, uw)
	}

	if total == 0 {
		return nil, errs.WrapWithExtra(ErrInvalidWeight, "all weights are zero", fmt.Sprintf("size=%d", n))
	}

	at := &AliasTable{
		Prob:    make([]int, n),
		Aliases: make([]int, n),
		Size:    n,
		Total:   int(total),
		Min:     int(minW),
		Max:     int(maxW),
	}
	if minW == maxW {
		at.Uniform = true
		return at, nil
	}

	if !isSafeMultiply(at.Total, n) {
		return nil, errs.WrapWithExtra(ErrWeightOverflow, "weights are too large for integer scaling", fmt.Sprintf("total=%d size=%d", at.Total, n))
	}

	// Prob 兼作 scaled 工作區：被 small 彈出的槽位之後不再變動，剛好就是最終門檻
	prob := at.Prob
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		prob[i] = int(w) * n
		if prob[i] < at.Total {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		at.Aliases[s] = l
		prob[l] = prob[l] + prob[s] - at.Total // 維持 sum(prob) = Total * n

		if prob[l] < at.Total {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	// 整數運算下 small 不會有殘留；仍一併處理，保證 0 <= Prob[i] <= Total
	for _, rest := range [][]int{large, small} {
		for _, i := range rest {
			prob[i] = at.Total
			at.Aliases[i] = i
		}
	}

	return at, nil
}

// isSafeMultiply 使用 bits.Mul64 檢查 a*b 是否超過 math.MaxInt。
// 建表時 scaled 值最大為 Total*n，先確認不會溢位，抽樣階段就不需再處理。
func isSafeMultiply(a, b int) bool {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return hi == 0 && lo <= math.MaxInt
}

// Pick 從 AliasTable 中抽取一個索引，若表為空則回傳 -1。
//
// 抽樣步驟說明：
//  1. c.IntN(Size) 選槽位 idx；Uniform 時直接回傳 idx。
//  2. c.IntN(Total) < Prob[idx] 則回傳 idx，否則回傳 Aliases[idx]。
//
// Prob[idx] = weight[idx] * Size 經捐補後的整數門檻，
// 等價於浮點版的 U < p[idx]，但完全不經過 float64。
func (at *AliasTable) Pick(c *core.Core) int {
	if at.Size == 0 {
		return -1
	}
	idx := c.IntN(at.Size)
	if at.Uniform {
		return idx
	}
	if c.IntN(at.Total) < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}
