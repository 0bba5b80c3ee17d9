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

package weightlab

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/recorder"
	"github.com/zintix-labs/weightlab/sdk/sampler"
	"github.com/zintix-labs/weightlab/setting"
	"github.com/zintix-labs/weightlab/snapshot"
	"github.com/zintix-labs/weightlab/stats"
)

const capPrepare int = 64

// 每抽 256 次檢查一次 ctx
const drainCheckMask = 255

// Simulator 以一張表的設定大量抽樣，平行紀錄並驗證分佈。
//
// 每個 worker 持有自己的 Clone（各自的 Core），抽樣期間不共享任何可變狀態。
// worker 0 使用 initSeed，其餘由 seedMaker 決定性地產生，因此同 seed 同 mp 的結果可重現。
type Simulator struct {
	Table     string
	ts        *setting.TableSetting
	lab       *Lab
	initSeed  int64
	seedmaker *seedMaker
	base      *sampler.WeightedList[string] // 建表一次，之後只 Clone
	lBuf      []*sampler.WeightedList[string]
	rBuf      []*recorder.DrawRecorder
}

func newSimulator(lab *Lab, ts *setting.TableSetting, seed int64) (*Simulator, error) {
	base, err := lab.buildTable(ts, seed)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		Table:     ts.Name,
		ts:        ts,
		lab:       lab,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		base:      base,
		lBuf:      make([]*sampler.WeightedList[string], 1, capPrepare),
		rBuf:      make([]*recorder.DrawRecorder, 0, capPrepare),
	}
	s.lBuf[0] = base.Clone(lab.newCore(seed))
	return s, nil
}

// Seed 回傳初始 seed，用於重現。
func (s *Simulator) Seed() int64 {
	return s.initSeed
}

// Sim 單線模擬器：以一份清單連續抽 rounds 次並回傳統計結果與用時
func (s *Simulator) Sim(rounds int, showpb bool) (*stats.DrawReport, time.Duration, error) {
	return s.SimMP(rounds, 1, showpb)
}

// SimMP 平行執行 mp 個 worker，總計 rounds*mp 次抽樣，合併統計結果後回傳報表與用時
func (s *Simulator) SimMP(rounds int, mp int, showpb bool) (*stats.DrawReport, time.Duration, error) {
	defer s.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if rounds < 1 {
		return nil, 0, errs.NewWarn("round must > 0")
	}
	for len(s.lBuf) < mp {
		s.lBuf = append(s.lBuf, s.base.Clone(s.lab.newCore(s.seedmaker.next())))
	}
	names, weights := s.base.Items(), s.base.Weights()
	for len(s.rBuf) < mp {
		r, err := recorder.NewDrawRecorder(s.Table, s.base.Policy().String(), names, weights)
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(rounds * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := range mp {
		go func(l *sampler.WeightedList[string], rec *recorder.DrawRecorder) {
			defer wg.Done()
			for range rounds {
				rec.Record(l.NextIndex())
				bar.Increment()
			}
		}(s.lBuf[i], s.rBuf[i])
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	merged, err := recorder.MergeDrawRecorder(s.rBuf[:mp])
	if err != nil {
		return nil, 0, err
	}
	rep, err := merged.Done()
	if err != nil {
		return nil, 0, err
	}
	rep.Summary.Seed = s.initSeed
	rep.Summary.Workers = mp
	return rep, used, nil
}

// WriteSnapshot 把模擬用的表以快照 frame 寫到 w，PRNG 為 seed 的初始狀態。
// 還原到服務端的同名表後，抽樣序列與同 seed 的 Simulator 相同。
func (s *Simulator) WriteSnapshot(w io.Writer) error {
	snap, err := snapshot.Capture(s.Table, s.base.Clone(s.lab.newCore(s.initSeed)), true)
	if err != nil {
		return err
	}
	return snapshot.Write(w, snap)
}

// Size 回傳表的項目數；Drain 的成本約為 Size 的平方（每次移除都重建）。
func (s *Simulator) Size() int {
	return s.base.Count()
}

// Drain 以 NextThenRemove 將整張表逐一抽空，回傳抽出順序。
// 使用 initSeed 的全新 Clone，同 seed 的抽空順序固定。
func (s *Simulator) Drain() (*stats.DrainReport, time.Duration, error) {
	return s.DrainContext(context.Background())
}

// DrainContext 與 Drain 相同，ctx 取消時中止並回傳 ctx 的錯誤。
func (s *Simulator) DrainContext(ctx context.Context) (*stats.DrainReport, time.Duration, error) {
	l := s.base.Clone(s.lab.newCore(s.initSeed))
	rep := &stats.DrainReport{
		Table:   s.Table,
		Seed:    s.initSeed,
		Order:   make([]string, 0, l.Count()),
		Weights: make([]int32, 0, l.Count()),
	}
	start := time.Now()
	for i := 0; l.Count() > 0; i++ {
		if i&drainCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, errs.Wrap(err, "drain canceled")
			}
		}
		item, ok := l.NextThenRemove()
		if !ok {
			return nil, 0, errs.NewFatal("drain: draw from non-empty table failed")
		}
		// 設定檔保證項目名稱唯一，可用原表查權重
		w, err := s.base.GetWeightOf(item)
		if err != nil {
			return nil, 0, err
		}
		rep.Order = append(rep.Order, item)
		rep.Weights = append(rep.Weights, w)
	}
	return rep, time.Since(start), nil
}

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 以全週期 LCG 推進 state，再用可逆的 mix63 打散。
// 可能被多個 goroutine 同時呼叫，state 以 CAS 迴圈推進。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next))
		}
	}
}

// mix63：只用可逆的 bit 操作與乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
