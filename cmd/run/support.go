package main

import (
	"flag"
	"io/fs"
	"log/slog"
	"os"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/demo/demo_configs"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/sdk/perf"
	"github.com/zintix-labs/weightlab/server/logger"
	"github.com/zintix-labs/weightlab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	table     string
	dir       string
	worker    int
	rounds    int
	seed      int64
	drain     bool
	prng      core.PRNGFactory
	snapshot  string
	out       string
	format    stats.Format
	verbose   bool
	pprofmode perf.Mode
}

func bindVar() error {
	var pmode, prng string
	// 綁定 Flag 到本地變數的指標 (&)
	flag.StringVar(&cfg.table, "table", "coinbox", "target table name")
	flag.StringVar(&cfg.dir, "dir", "", "config directory (default: embedded demo configs)")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.rounds, "rounds", 1000000, "draws per worker")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.BoolVar(&cfg.drain, "drain", false, "draw-then-remove until the table is empty")
	flag.StringVar(&prng, "prng", "pcg64", "random generator: pcg64, pcg32")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "write the table snapshot (binary frame) to this file before running")
	flag.StringVar(&cfg.out, "out", "", "report format: '' (table), json, yaml")
	flag.BoolVar(&cfg.verbose, "v", false, "debug logs to stderr")
	flag.StringVar(&pmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	m, err := perf.ParseMode(pmode)
	if err != nil {
		return err
	}
	cfg.pprofmode = m
	if cfg.prng, err = core.ParseFactory(prng); err != nil {
		return err
	}

	// given seed illeagel -> random seed
	if cfg.seed < 1 {
		cfg.seed = core.RandomSeed()
	}
	return cfg.valid()
}

// 這裡解析並分支要執行的模擬器
func executeSimulator() error {
	log := slog.New(slog.DiscardHandler)
	if cfg.verbose {
		log = logger.NewDefaultLogger(logger.ModeDev)
	}
	var src fs.FS = demo_configs.FS
	if cfg.dir != "" {
		src = os.DirFS(cfg.dir)
	}
	lab, err := weightlab.New(cfg.prng, weightlab.Configs(src), weightlab.WithLogger(log))
	if err != nil {
		return err
	}
	s, err := lab.NewSimulatorWithSeed(cfg.table, cfg.seed)
	if err != nil {
		return err
	}
	if cfg.snapshot != "" {
		if err := writeSnapshot(s, cfg.snapshot); err != nil {
			return err
		}
	}
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.drain {
		d, used, err := s.Drain()
		if err != nil {
			return err
		}
		if cfg.format != stats.FormatText {
			return stats.RenderDrain(os.Stdout, d, cfg.format)
		}
		p.Printf("%s[TABLE:%s] [DRAIN] [SEED:%d]%s\n", green, s.Table, cfg.seed, reset)
		d.StdOut(used)
		return nil
	}

	text := cfg.format == stats.FormatText
	if text {
		p.Printf("%s[WORKERS:%d] [TABLE:%s] [DRAWS:%d] [SEED:%d]%s\n", green, cfg.worker, s.Table, cfg.worker*cfg.rounds, cfg.seed, reset)
	}
	st, used, err := s.SimMP(cfg.rounds, cfg.worker, text)
	if err != nil {
		return err
	}
	switch cfg.format {
	case stats.FormatJSON:
		return st.WriteWith(os.Stdout, stats.JSONRender)
	case stats.FormatYAML:
		return st.WriteWith(os.Stdout, stats.YAMLRender)
	default:
		st.StdOut(used)
		return nil
	}
}

// writeSnapshot 寫出可 PUT 到 /v1/tables/{table}/snapshot 的檔案
func writeSnapshot(s *weightlab.Simulator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "create snapshot file failed")
	}
	if err := s.WriteSnapshot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (cfg *config) valid() error {
	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		return errs.NewWarn("value err : worker must > 0")
	}
	// 抽數檢查
	if !cfg.drain && cfg.rounds < 1 {
		return errs.NewWarn("value err : rounds must > 0")
	}
	f, err := stats.ParseFormat(cfg.out)
	if err != nil {
		return err
	}
	cfg.format = f
	return nil
}
