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

// Package core 提供 weightlab 所有抽樣演算法共用的亂數核心。
//
// 抽樣結構（sampler.WeightedList 等）不直接依賴 math/rand 的全域狀態，而是持有一個 *Core：
//   - 正式環境可用 NewRandom() 取得以加密亂數播種的核心。
//   - 測試與模擬使用 Default().New(seed) 取得可重現的核心。
package core

import (
	"crypto/rand"
	"math"
	"math/big"
	"strings"

	"github.com/zintix-labs/weightlab/errs"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// bounded 生成（IntN/UintN）交由 PRNG 自己實作，
// 讓 32-bit 與 64-bit 的產生器各自走最合適的拒絕採樣路徑。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一個實作與版本下 New(seed) 必須是決定性的，
// 相同的 seed 產生相同的初始狀態與輸出序列（模擬的可重現性依賴這點）。
type PRNGFactory interface {
	New(int64) PRNG
}

// DefaultPRNG 以 PCG64 實作 PRNGFactory。
type DefaultPRNG struct{}

func (d *DefaultPRNG) New(seed int64) PRNG {
	return NewPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// PCG32PRNG 以 PCG32 實作 PRNGFactory，32-bit 平台上較快。
type PCG32PRNG struct{}

func (p *PCG32PRNG) New(seed int64) PRNG {
	return NewPCG32WithSeed(seed)
}

// ParseFactory 依名稱選擇產生器："" 或 "pcg64" 為預設，"pcg32" 為 PCG32。
func ParseFactory(name string) (PRNGFactory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pcg64":
		return Default(), nil
	case "pcg32":
		return &PCG32PRNG{}, nil
	default:
		return nil, errs.Warnf("unknown prng %q (want pcg64|pcg32)", name)
	}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// NewRandom 以加密亂數產生 seed 建立預設 Core。
func NewRandom() *Core {
	return New(Default().New(RandomSeed()))
}

// RandomSeed 回傳 [0, MaxInt64) 的加密亂數 seed。
func RandomSeed() int64 {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		// crypto/rand 在支援的平台上不會失敗
		panic("core: crypto/rand unavailable: " + err.Error())
	}
	return seed.Int64()
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 -1
// 熱路徑中只使用哨兵值回傳
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	idx := c.IntN(len(src))
	return src[idx]
}

// ShuffleInts 使用 Fisher-Yates 對 []int 就地重排。
// 所有 N! 種排列機率相等，O(N) 時間、零配置。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}

	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}

// ExpFloat64 回傳 rate=1 的指數分佈亂數 (0, +Inf)。
// 使用反函數法 -ln(1-U)，U 取自 Float64，1-U 落在 (0,1] 不會取到 log(0)。
func (c *Core) ExpFloat64() float64 {
	return -math.Log(1 - c.Float64())
}
