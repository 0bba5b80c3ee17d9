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

package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/demo/demo_configs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/server"
	"github.com/zintix-labs/weightlab/server/logger"
	"github.com/zintix-labs/weightlab/server/svrcfg"
)

// This command is the "lab server" entrypoint for the weightlab repo.
// Without -dir it serves the embedded demo tables.
func main() {
	cfg, ah, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	err = server.Run(cfg)
	ah.Close()
	if err != nil {
		os.Exit(1)
	}
}

type config struct {
	Addr       string
	LogMode    string
	Dir        string
	MaxRounds  int
	MaxWorkers int
	DrainCap   int
	PRNG       string
	WriteTO    time.Duration
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, *logger.AsyncHandler, error) {
	cfg := new(config)
	flag.StringVar(&cfg.Addr, "addr", svrcfg.DefaultAddr, "listen address")
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.StringVar(&cfg.Dir, "dir", "", "config directory (default: embedded demo configs)")
	flag.IntVar(&cfg.MaxRounds, "sim-cap", 0, "max draws per /v1/sim request (0: default)")
	flag.IntVar(&cfg.MaxWorkers, "sim-workers", 0, "max workers per /v1/sim request (0: default)")
	flag.IntVar(&cfg.DrainCap, "drain-cap", 0, "max table items for drain requests (0: sqrt of sim-cap)")
	flag.StringVar(&cfg.PRNG, "prng", "pcg64", "random generator: pcg64, pcg32")
	flag.DurationVar(&cfg.WriteTO, "write-timeout", 0, "http write timeout (0: 60s)")

	flag.Parse()

	mode, err := logger.ParseLogMode(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}
	factory, err := core.ParseFactory(cfg.PRNG)
	if err != nil {
		return nil, nil, err
	}
	log, ah := logger.NewAsync(4096, mode)

	var src fs.FS = demo_configs.FS
	if cfg.Dir != "" {
		src = os.DirFS(cfg.Dir)
	}
	lab, err := weightlab.New(factory, weightlab.Configs(src), weightlab.WithLogger(log))
	if err != nil {
		ah.Close()
		return nil, nil, err
	}
	sCfg := &svrcfg.SvrCfg{
		Addr:          cfg.Addr,
		Log:           log,
		Lab:           lab,
		MaxSimRounds:  cfg.MaxRounds,
		MaxSimWorkers: cfg.MaxWorkers,
		MaxDrainItems: cfg.DrainCap,
		WriteTimeout:  cfg.WriteTO,
	}
	return sCfg, ah, nil
}
