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
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/weightlab/dto"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/sdk/sampler"
	"github.com/zintix-labs/weightlab/setting"
	"github.com/zintix-labs/weightlab/snapshot"
)

var (
	ErrTableNotFound = errs.NewWarn("table not found")
	ErrTableEmpty    = errs.NewWarn("table is empty")
	ErrRuntimeClosed = errs.NewFatal("table runtime closed")
)

// TableRuntime 持有每張表的即時 WeightedList，供服務端併發存取。
//
// WeightedList 本身不是 thread-safe，且抽樣會推進 Core 的狀態，
// 因此每張表一把 mutex，讀、抽樣、變更都在鎖內完成；不同表之間互不阻塞。
type TableRuntime struct {
	lab    *Lab
	tables map[string]*liveTable // 建好後只讀，不需要鎖
	names  []string

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string
}

type liveTable struct {
	mu    sync.Mutex
	name  string
	ts    *setting.TableSetting
	list  *sampler.WeightedList[string]
	draws atomic.Int64
}

// Names 回傳排序後的表名。
func (rt *TableRuntime) Names() []string {
	return append([]string(nil), rt.names...)
}

// with 檢查 ctx 與關閉狀態後，持鎖執行 fn。
func (rt *TableRuntime) with(ctx context.Context, name string, fn func(t *liveTable) error) error {
	select {
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "table request canceled/timeout")
	case <-rt.done:
		rt.closed.Store(true)
		return errs.WrapWithExtra(ErrRuntimeClosed, "table request rejected", rt.ClosedReason())
	default:
	}
	t, ok := rt.tables[tableKey(name)]
	if !ok {
		return errs.WrapWithExtra(ErrTableNotFound, "lookup", name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(t)
}

// View 回傳表的目前狀態；withItems 決定是否列出項目。
func (rt *TableRuntime) View(ctx context.Context, name string, withItems bool) (dto.TableView, error) {
	var v dto.TableView
	err := rt.with(ctx, name, func(t *liveTable) error {
		v = dto.NewTableView(t.name, t.list, withItems)
		return nil
	})
	return v, err
}

// Draw 依權重抽 n 次（不移除）。
func (rt *TableRuntime) Draw(ctx context.Context, name string, n int) (dto.DrawResult, error) {
	if n < 1 {
		return dto.DrawResult{}, errs.NewWarn("n must > 0")
	}
	res := dto.DrawResult{Items: make([]string, 0, n)}
	err := rt.with(ctx, name, func(t *liveTable) error {
		res.Table = t.name
		if t.list.Count() == 0 {
			return errs.WrapWithExtra(ErrTableEmpty, "draw", name)
		}
		for range n {
			item, _ := t.list.Next()
			res.Items = append(res.Items, item)
		}
		t.draws.Add(int64(n))
		return nil
	})
	return res, err
}

// DrawThenRemove 抽出一個項目並從表中移除。
func (rt *TableRuntime) DrawThenRemove(ctx context.Context, name string) (dto.TakeResult, error) {
	var res dto.TakeResult
	err := rt.with(ctx, name, func(t *liveTable) error {
		res.Table = t.name
		item, ok := t.list.NextThenRemove()
		if !ok {
			return errs.WrapWithExtra(ErrTableEmpty, "take", name)
		}
		t.draws.Add(1)
		res.Item, res.Remaining = item, t.list.Count()
		return nil
	})
	return res, err
}

func (rt *TableRuntime) SetWeight(ctx context.Context, name, item string, weight int32) error {
	return rt.with(ctx, name, func(t *liveTable) error {
		return t.list.SetWeight(item, weight)
	})
}

func (rt *TableRuntime) SetWeightOfAll(ctx context.Context, name string, weight int32) error {
	return rt.with(ctx, name, func(t *liveTable) error {
		return t.list.SetWeightOfAll(weight)
	})
}

func (rt *TableRuntime) AddWeightToAll(ctx context.Context, name string, delta int32) error {
	return rt.with(ctx, name, func(t *liveTable) error {
		return t.list.AddWeightToAll(delta)
	})
}

// Add 新增項目；同名項目已存在時拒絕，保持表內名稱唯一。
func (rt *TableRuntime) Add(ctx context.Context, name, item string, weight int32) error {
	if item == "" {
		return errs.NewWarn("item name required")
	}
	return rt.with(ctx, name, func(t *liveTable) error {
		if t.list.Contains(item) {
			return errs.Warnf("item %q already exists in table %s", item, name)
		}
		return t.list.Add(item, weight)
	})
}

func (rt *TableRuntime) Remove(ctx context.Context, name, item string) error {
	return rt.with(ctx, name, func(t *liveTable) error {
		return t.list.Remove(item)
	})
}

// Reset 依設定檔重建表（保留目前的 Core，抽樣序列不回捲）。
func (rt *TableRuntime) Reset(ctx context.Context, name string) error {
	return rt.with(ctx, name, func(t *liveTable) error {
		wl, err := sampler.NewFrom(t.list.Core(), t.ts.WeightPolicy(), t.ts.Pairs())
		if err != nil {
			return err
		}
		t.list = wl
		return nil
	})
}

// Snapshot 輸出表的二進位快照（含 PRNG 狀態）。
func (rt *TableRuntime) Snapshot(ctx context.Context, name string) ([]byte, error) {
	var frame []byte
	err := rt.with(ctx, name, func(t *liveTable) error {
		snap, err := snapshot.Capture(t.name, t.list, true)
		if err != nil {
			return err
		}
		frame, err = snapshot.Encode(snap)
		return err
	})
	return frame, err
}

// Restore 以快照取代表的內容與 PRNG 狀態；失敗時表維持原狀。
func (rt *TableRuntime) Restore(ctx context.Context, name string, frame []byte) error {
	snap, err := snapshot.Decode[string](frame)
	if err != nil {
		return err
	}
	return rt.restore(ctx, name, snap)
}

// RestoreFrom 與 Restore 相同，但從串流讀取 frame（宣告長度上限 snapshot.MaxFrameBytes）。
func (rt *TableRuntime) RestoreFrom(ctx context.Context, name string, r io.Reader) error {
	snap, err := snapshot.Read[string](r, snapshot.MaxFrameBytes)
	if err != nil {
		return err
	}
	return rt.restore(ctx, name, snap)
}

func (rt *TableRuntime) restore(ctx context.Context, name string, snap *snapshot.Table[string]) error {
	if snap.Name != tableKey(name) {
		return errs.Warnf("snapshot belongs to table %q, not %q", snap.Name, name)
	}
	if err := uniqueItems(snap.Items); err != nil {
		return errs.WrapWithExtra(err, "restore", name)
	}
	return rt.with(ctx, name, func(t *liveTable) error {
		// 新 Core 與現行 Core 分離，還原失敗不影響現行表
		wl, err := snap.Build(core.New(rt.lab.cf.New(0)))
		if err != nil {
			return err
		}
		t.list = wl
		return nil
	})
}

// uniqueItems 檢查快照內的項目名稱非空且不重複，與 Add 及設定檔的規則一致。
func uniqueItems(items []sampler.Item[string]) error {
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.Value == "" {
			return errs.Warnf("items[%d] name required", i)
		}
		if _, ok := seen[it.Value]; ok {
			return errs.Warnf("duplicate item %q", it.Value)
		}
		seen[it.Value] = struct{}{}
	}
	return nil
}

// Draws 回傳表自啟動以來的抽樣次數（不需持鎖）。
func (rt *TableRuntime) Draws(name string) int64 {
	if t, ok := rt.tables[tableKey(name)]; ok {
		return t.draws.Load()
	}
	return 0
}

// tableKey 與 catalog 相同的表名正規化（小寫、去空白）。
func tableKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *TableRuntime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *TableRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *TableRuntime) Closed() bool {
	return rt.closed.Load()
}

func (rt *TableRuntime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
