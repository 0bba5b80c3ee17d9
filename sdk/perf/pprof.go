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

// Package perf 為模擬器提供 pprof 包裝，用於分析抽樣熱點或產生 PGO 檔。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/weightlab/errs"
)

// DefaultDir 是 pprof 檔案的預設寫入路徑
const DefaultDir = "build/profiling"

// Mode 是 profiling 類型
type Mode string

const (
	ModeNone   Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"
	ModeAllocs Mode = "allocs"
)

// ParseMode 解析命令列的 -p 參數
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNone, ModeCPU, ModeHeap, ModeAllocs:
		return m, nil
	default:
		return ModeNone, errs.Warnf("unknown pprof mode %q: want '', cpu, heap, allocs", s)
	}
}

// Run 依 mode 包裝 exe；dir 為空時使用 DefaultDir。exe 的錯誤優先回傳。
//
// Usage like:
//
//	go run ./cmd/run -table coinbox -p cpu
func Run(exe func() error, mode Mode, dir string) error {
	if dir == "" {
		dir = DefaultDir
	}
	switch mode {
	case ModeNone:
		return exe()
	case ModeCPU:
		return cpu(exe, dir)
	case ModeHeap:
		return after(exe, dir, "heap")
	case ModeAllocs:
		return after(exe, dir, "allocs")
	default:
		return errs.Warnf("unknown pprof mode %q", mode)
	}
}

// cpu 在 exe 執行期間開啟 CPU profiling，也可以拿來做構建時給 pgo 的優化 blueprint
func cpu(exe func() error, dir string) error {
	f, err := create(dir, "cpu")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "failed to start cpu profile")
	}
	defer pprof.StopCPUProfile()

	return exe()
}

// after 會在 exe() 執行完後寫出一次 heap（in-use）或 allocs（累積配置）profile。
// heap 寫出前先 runtime.GC()，以獲得較準確的 live objects 視圖。
func after(exe func() error, dir string, name string) error {
	if err := exe(); err != nil {
		return err
	}
	if name == "heap" {
		runtime.GC()
	}
	f, err := create(dir, name)
	if err != nil {
		return err
	}
	defer f.Close()

	prof := pprof.Lookup(name)
	if prof == nil {
		return errs.Fatalf("profile %s not available", name)
	}
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "failed to write "+name+" profile")
	}
	return nil
}

func create(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "failed to create profiling dir")
	}
	f, err := os.Create(filepath.Join(dir, name+".pprof"))
	if err != nil {
		return nil, errs.Wrap(err, "failed to create "+name+".pprof")
	}
	return f, nil
}
