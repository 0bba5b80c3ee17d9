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

package svrcfg

import (
	"log/slog"
	"math"
	"time"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/server/logger"
	"github.com/zintix-labs/weightlab/server/metrics"
)

const (
	DefaultAddr    = ":5808"
	defaultSimCap  = 5_000_000
	defaultWorkers = 8
)

type SvrCfg struct {
	Addr string
	Log  *slog.Logger
	Lab  *weightlab.Lab
	// Metrics 為 nil 時建立獨立的 registry
	Metrics *metrics.Metrics
	// MaxSimRounds 限制單次 /sim 請求的總抽取次數（rounds * workers）
	MaxSimRounds int
	// MaxSimWorkers 限制單次 /sim 請求可用的 worker 數
	MaxSimWorkers int
	// MaxDrainItems 限制 drain 模式的表大小；抽空的成本是項目數的平方。
	// <= 0 時取 sqrt(MaxSimRounds)，與一般模擬的抽取上限同級。
	MaxDrainItems int
	// WriteTimeout <= 0 時沿用 netsvr 的預設值
	WriteTimeout time.Duration
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Metrics == nil {
		sc.Metrics = metrics.NewDefaultMetrics()
	}
	if sc.Addr == "" {
		sc.Addr = DefaultAddr
	}
	if sc.MaxSimRounds <= 0 {
		sc.MaxSimRounds = defaultSimCap
	}
	if sc.MaxDrainItems <= 0 {
		sc.MaxDrainItems = max(1, int(math.Sqrt(float64(sc.MaxSimRounds))))
	}
	// 1 <= MaxSimWorkers <= 64
	if sc.MaxSimWorkers <= 0 {
		sc.MaxSimWorkers = defaultWorkers
	}
	sc.MaxSimWorkers = min(64, sc.MaxSimWorkers)
	if sc.Lab == nil {
		return errs.NewFatal("weightlab is required")
	}
	return nil
}
