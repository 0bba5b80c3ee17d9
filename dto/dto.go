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

package dto

import (
	"github.com/zintix-labs/weightlab/sdk/sampler"
)

// TableView 是一張表對外輸出的狀態。
type TableView struct {
	Name         string     `json:"name"`
	Policy       string     `json:"policy"`
	Count        int        `json:"count"`
	TotalWeight  int        `json:"total_weight"`
	MinWeight    int32      `json:"min_weight"`
	MaxWeight    int32      `json:"max_weight"`
	AllIdentical bool       `json:"all_identical"`
	Items        []ItemView `json:"items,omitempty"`
}

// ItemView 單一項目與其理論抽中機率。
type ItemView struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	Weight      int32   `json:"weight"`
	Probability float64 `json:"p"`
}

// DrawResult 一次或多次抽樣（不移除）的結果。
type DrawResult struct {
	Table string   `json:"table"`
	Items []string `json:"items"`
}

// TakeResult 抽出並移除一個項目的結果，Remaining 為移除後的數量。
type TakeResult struct {
	Table     string `json:"table"`
	Item      string `json:"item"`
	Remaining int    `json:"remaining"`
}

// SnapshotPayload 以 base64url 文字傳遞快照 frame。
type SnapshotPayload struct {
	Table    string `json:"table"`
	Snapshot string `json:"snapshot"`
}

// NewTableView 擷取清單狀態；withItems 為 false 時只輸出摘要。
func NewTableView(name string, l *sampler.WeightedList[string], withItems bool) TableView {
	v := TableView{
		Name:         name,
		Policy:       l.Policy().String(),
		Count:        l.Count(),
		TotalWeight:  l.TotalWeight(),
		MinWeight:    l.MinWeight(),
		MaxWeight:    l.MaxWeight(),
		AllIdentical: l.AllIdentical(),
	}
	if !withItems {
		return v
	}
	v.Items = make([]ItemView, 0, l.Count())
	for i, p := range l.Pairs() {
		v.Items = append(v.Items, ItemView{
			Index:       i,
			Name:        p.Value,
			Weight:      p.Weight,
			Probability: l.Probability(i),
		})
	}
	return v
}
