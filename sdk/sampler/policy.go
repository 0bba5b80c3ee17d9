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
// 本檔案 (policy.go) 定義不合法權重（<= 0）進入結構前的正規化策略。

package sampler

import (
	"math"
	"strings"

	"github.com/zintix-labs/weightlab/errs"
)

// WeightPolicy 決定 <= 0 的權重如何處理。
//
// 策略套用在所有寫入權重的路徑：Add / Insert / SetWeight / AddWeightToAll / SetWeightOfAll 等。
//   - ClampToOne：靜默改成 1（預設）。
//   - RejectOnInvalid：回傳 ErrInvalidWeight，結構保持不變。
type WeightPolicy uint8

const (
	ClampToOne WeightPolicy = iota
	RejectOnInvalid
)

var policyName = map[WeightPolicy]string{
	ClampToOne:      "clamp_to_one",
	RejectOnInvalid: "reject_on_invalid",
}

func (p WeightPolicy) String() string {
	if s, ok := policyName[p]; ok {
		return s
	}
	return "unknown"
}

// ParseWeightPolicy 解析設定檔字串，空字串視為 ClampToOne。
func ParseWeightPolicy(s string) (WeightPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp", "clamp_to_one":
		return ClampToOne, nil
	case "reject", "reject_on_invalid":
		return RejectOnInvalid, nil
	default:
		return ClampToOne, errs.Warnf("unknown weight policy: %q", s)
	}
}

func (p WeightPolicy) MarshalText() ([]byte, error) {
	if _, ok := policyName[p]; !ok {
		return nil, errs.Warnf("unknown weight policy: %d", p)
	}
	return []byte(p.String()), nil
}

func (p *WeightPolicy) UnmarshalText(b []byte) error {
	v, err := ParseWeightPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Fix 依策略正規化單一權重。
func (p WeightPolicy) Fix(w int32) (int32, error) {
	return p.fix(int64(w))
}

// fix 以 int64 接收，讓批次加減權重時的中間值不會先在 int32 溢位。
// 超過 MaxInt32 與策略無關，一律回傳 ErrWeightOverflow。
func (p WeightPolicy) fix(w int64) (int32, error) {
	if w > math.MaxInt32 {
		return 0, ErrWeightOverflow
	}
	if w > 0 {
		return int32(w), nil
	}
	if p == RejectOnInvalid {
		return 0, ErrInvalidWeight
	}
	return 1, nil
}
