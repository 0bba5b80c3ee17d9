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

// Package weightlab 提供加權表引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Lab 把兩個必需的地基組裝在一起：
//  1. Catalog：表目錄，定義有哪些加權表、各自對應的設定檔名稱。
//  2. PRNGFactory：亂數核心工廠，保證同一個 seed 得到同一串抽樣結果。
//
// 設計重點：
//   - Lab 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 注入（go:embed 或 os.DirFS）。
//   - sampler.WeightedList 是對外提供抽樣的最小單位；Lab 負責依設定建出它。
//
// 典型使用情境：
//   - 後端服務：BuildRuntime 取得 TableRuntime，以每張表一把鎖的方式對外提供 Draw。
//   - 模擬器：NewSimulator 以多個 worker 各自持有的 Clone 大量抽樣並驗證分佈。
package weightlab

import (
	"io/fs"
	"log/slog"

	"github.com/zintix-labs/weightlab/catalog"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/sdk/sampler"
	"github.com/zintix-labs/weightlab/setting"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Option 調整 Lab 的可選行為。
type Option func(*Lab)

// WithLogger 指定 Lab 使用的 logger（預設丟棄）。
func WithLogger(log *slog.Logger) Option {
	return func(l *Lab) {
		if log != nil {
			l.log = log
		}
	}
}

// Lab 是組裝器與運行入口。
//
// 重要設計原則：
//   - 表名唯一性只保證在同一個 Lab instance 內。
//   - New 完成後 Catalog 即凍結，runtime 期間不再變更。
type Lab struct {
	cat *catalog.Catalog
	cf  core.PRNGFactory
	log *slog.Logger
}

// New 建立 Lab：索引所有設定檔、以檔內宣告的表名登錄並凍結 Catalog。
//
// 參數要求：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現的核心。
//   - cfgs 至少一個，且至少要有一張表。
func New(cf core.PRNGFactory, cfgs []fs.FS, opts ...Option) (*Lab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	lab := &Lab{
		cat: cata,
		cf:  cf,
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(lab)
	}
	if err := cata.Discover(); err != nil {
		return nil, err
	}
	if len(cata.Names()) == 0 {
		return nil, errs.NewFatal("no table configs found")
	}
	cata.Freeze()
	for _, e := range cata.All() {
		lab.log.Debug("table registered", slog.String("table", e.Name), slog.String("config", e.ConfigName))
	}
	return lab, nil
}

// Tables 回傳排序後的表名。
func (l *Lab) Tables() []string {
	return l.cat.Names()
}

func (l *Lab) Entries() []catalog.Entry {
	return l.cat.All()
}

// Setting 讀取並檢查指定表的設定。
func (l *Lab) Setting(name string) (*setting.TableSetting, error) {
	return l.cat.TableSetting(name)
}

// NewTable 建立指定表的 WeightedList，seed 由 crypto/rand 產生。
func (l *Lab) NewTable(name string) (*sampler.WeightedList[string], error) {
	return l.NewTableWithSeed(name, core.RandomSeed())
}

// NewTableWithSeed 與 NewTable 相同，但由呼叫端指定 seed（同 seed 同序列）。
func (l *Lab) NewTableWithSeed(name string, seed int64) (*sampler.WeightedList[string], error) {
	ts, err := l.Setting(name)
	if err != nil {
		return nil, err
	}
	return l.buildTable(ts, seed)
}

func (l *Lab) buildTable(ts *setting.TableSetting, seed int64) (*sampler.WeightedList[string], error) {
	wl, err := sampler.NewFrom(l.newCore(seed), ts.WeightPolicy(), ts.Pairs())
	if err != nil {
		return nil, errs.WrapWithExtra(err, "build table failed", ts.Name)
	}
	return wl, nil
}

func (l *Lab) newCore(seed int64) *core.Core {
	return core.New(l.cf.New(seed))
}

func (l *Lab) NewSimulator(name string) (*Simulator, error) {
	return l.NewSimulatorWithSeed(name, core.RandomSeed())
}

func (l *Lab) NewSimulatorWithSeed(name string, seed int64) (*Simulator, error) {
	ts, err := l.Setting(name)
	if err != nil {
		return nil, err
	}
	return newSimulator(l, ts, seed)
}

// NewSimulatorByJSON 以呼叫端帶入的設定建立模擬器（不需在 catalog 內，用於試算權重）。
func (l *Lab) NewSimulatorByJSON(raw []byte, seed int64) (*Simulator, error) {
	ts, err := setting.GetTableSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	return newSimulator(l, ts, seed)
}

func (l *Lab) NewSimulatorByYAML(raw []byte, seed int64) (*Simulator, error) {
	ts, err := setting.GetTableSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	return newSimulator(l, ts, seed)
}

// BuildRuntime 為每張表建立一份可變的即時清單，供服務端使用。
func (l *Lab) BuildRuntime() (*TableRuntime, error) {
	names := l.cat.Names()
	rt := &TableRuntime{
		lab:    l,
		tables: make(map[string]*liveTable, len(names)),
		names:  names,
		done:   make(chan struct{}),
	}
	rt.reason.Store("")

	// 先全建好（fail-fast）
	for _, name := range names {
		ts, err := l.Setting(name)
		if err != nil {
			return nil, err
		}
		seed := core.RandomSeed()
		wl, err := l.buildTable(ts, seed)
		if err != nil {
			return nil, err
		}
		rt.tables[name] = &liveTable{name: name, ts: ts, list: wl}
		l.log.Info("table online", slog.String("table", name), slog.Int("items", wl.Count()), slog.Int("total_weight", wl.TotalWeight()))
	}
	return rt, nil
}
