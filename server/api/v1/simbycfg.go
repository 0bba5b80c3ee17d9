package v1

import (
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/server/httperr"
)

// SimByCfg POST /v1/simbycfg?format=yaml|json&rounds=&workers=&seed=&drain=
//
// body 直接是一份表設定（不需在 catalog 內），用於上線前試算權重。
func (sh *SimHandler) SimByCfg(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// 1. query
	rounds, workers := 0, 1
	if s := q.Get("rounds"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("rounds must be integer"))
			return
		}
		rounds = v
	}
	if s := q.Get("workers"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("workers must be integer"))
			return
		}
		workers = v
	}
	seed := core.RandomSeed()
	if s := q.Get("seed"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("seed must be int64"))
			return
		}
		seed = v
	}
	drain := q.Get("drain") == "true" || q.Get("drain") == "1"
	if !drain && rounds < 1 {
		httperr.Errs(w, errs.NewWarn("rounds must be at least 1"))
		return
	}

	// 2. body
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 5<<20)) // 5MB
	if err != nil {
		httperr.Errs(w, errs.Warnf("read config failed: %v", err))
		return
	}

	// 3. NewSimulator
	var sim *weightlab.Simulator
	switch q.Get("format") {
	case "yaml", "yml":
		sim, err = sh.lab.NewSimulatorByYAML(raw, seed)
	case "", "json":
		sim, err = sh.lab.NewSimulatorByJSON(raw, seed)
	default:
		httperr.Errs(w, errs.Warnf("invalid config format: %q", q.Get("format")))
		return
	}
	if err != nil {
		httperr.Errs(w, badConfig(err))
		return
	}
	sh.run(w, r, sim, rounds, workers, drain)
}
