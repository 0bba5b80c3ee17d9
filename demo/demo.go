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

package demo

import (
	"log/slog"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/demo/demo_configs"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/server/logger"
	"github.com/zintix-labs/weightlab/server/svrcfg"
)

// NewServerConfig 以內嵌的 demo 設定組出可直接啟動的伺服器設定。
func NewServerConfig() (*svrcfg.SvrCfg, error) {
	log := logger.NewDefaultAsyncLogger(logger.ModeDev)
	lab, err := NewLab(log)
	if err != nil {
		return nil, errs.NewFatal("new weightlab failed:" + err.Error())
	}
	return &svrcfg.SvrCfg{
		Log: log,
		Lab: lab,
	}, nil
}

func NewLab(log *slog.Logger) (*weightlab.Lab, error) {
	return weightlab.New(
		core.Default(),
		weightlab.Configs(demo_configs.FS),
		weightlab.WithLogger(log),
	)
}
