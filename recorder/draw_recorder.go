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

package recorder

import (
	"slices"

	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/stats"
)

// DrawRecorder 抽樣紀錄員
//
// DrawRecorder 以索引累計抽中次數，並透過 Done 輸出統計報表。
// 每個 worker 持有自己的 DrawRecorder，結束後以 MergeDrawRecorder 合併。
type DrawRecorder struct {
	Table   string
	Policy  string
	Names   []string
	Weights []int32
	Counts  []int
	Misses  int // 空表抽樣（回傳 -1）的次數
}

func NewDrawRecorder(table, policy string, names []string, weights []int32) (*DrawRecorder, error) {
	if len(names) != len(weights) {
		return nil, errs.Fatalf("draw recorder: names=%d weights=%d", len(names), len(weights))
	}
	return &DrawRecorder{
		Table:   table,
		Policy:  policy,
		Names:   slices.Clone(names),
		Weights: slices.Clone(weights),
		Counts:  make([]int, len(names)),
	}, nil
}

// Record 記錄一次抽樣結果；idx < 0 代表空表。
func (d *DrawRecorder) Record(idx int) {
	if idx < 0 || idx >= len(d.Counts) {
		d.Misses++
		return
	}
	d.Counts[idx]++
}

func (d *DrawRecorder) Rounds() int {
	n := d.Misses
	for _, c := range d.Counts {
		n += c
	}
	return n
}

// MergeDrawRecorder 合併多個 worker 的紀錄，表結構（名稱、權重）必須一致。
func MergeDrawRecorder(r []*DrawRecorder) (*DrawRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge draw record err : empty input")
	}
	r0 := r[0]
	s, err := NewDrawRecorder(r0.Table, r0.Policy, r0.Names, r0.Weights)
	if err != nil {
		return nil, err
	}
	for _, v := range r {
		if v.Table != r0.Table {
			return nil, errs.NewFatal("merge draw record err : different table")
		}
		if !slices.Equal(v.Names, r0.Names) || !slices.Equal(v.Weights, r0.Weights) {
			return nil, errs.NewFatal("merge draw record err : different table layout")
		}
		for i, c := range v.Counts {
			s.Counts[i] += c
		}
		s.Misses += v.Misses
	}
	return s, nil
}

// Done 產生統計報表。
func (d *DrawRecorder) Done() (*stats.DrawReport, error) {
	rep, err := stats.NewDrawReport(d.Table, d.Policy, d.Names, d.Weights, d.Counts)
	if err != nil {
		return nil, err
	}
	rep.Done()
	return rep, nil
}
