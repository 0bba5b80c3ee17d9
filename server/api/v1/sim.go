package v1

import (
	"net/http"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/dto"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/server/httperr"
	"github.com/zintix-labs/weightlab/server/metrics"
	"github.com/zintix-labs/weightlab/server/svrcfg"
	"github.com/zintix-labs/weightlab/stats"
)

type SimHandler struct {
	lab        *weightlab.Lab
	metrics    *metrics.Metrics
	maxRounds  int
	maxWorkers int
	maxDrain   int
}

// SimResponse 模擬結果；Drain 模式時 Stats 為空、Drain 有值。
type SimResponse struct {
	Stats    *stats.DrawReport  `json:"stats,omitempty"`
	Drain    *stats.DrainReport `json:"drain,omitempty"`
	UsedTime int64              `json:"used_ms"`
}

func NewSimHandler(sCfg *svrcfg.SvrCfg) (*SimHandler, error) {
	if sCfg == nil || sCfg.Lab == nil {
		return nil, errs.NewFatal("weightlab is required")
	}
	return &SimHandler{
		lab:        sCfg.Lab,
		metrics:    sCfg.Metrics,
		maxRounds:  sCfg.MaxSimRounds,
		maxWorkers: sCfg.MaxSimWorkers,
		maxDrain:   sCfg.MaxDrainItems,
	}, nil
}

// Sim POST /v1/sim
func (sh *SimHandler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Seed == nil {
		v := core.RandomSeed()
		req.Seed = &v
	}

	// 取得sim
	var sim *weightlab.Simulator
	switch {
	case req.Table != "":
		sim, err = sh.lab.NewSimulatorWithSeed(req.Table, *req.Seed)
	case req.Format == "yaml":
		sim, err = sh.lab.NewSimulatorByYAML([]byte(req.Config), *req.Seed)
	default:
		sim, err = sh.lab.NewSimulatorByJSON([]byte(req.Config), *req.Seed)
	}
	if err != nil {
		if req.Table != "" {
			// 這裡的錯誤是來自 weightlab 尊重錯誤分級
			httperr.Errs(w, errs.Wrap(err, "build simulator err"))
		} else {
			httperr.Errs(w, badConfig(err))
		}
		return
	}
	sh.run(w, r, sim, req.Rounds, req.Workers, req.Drain)
}

func (sh *SimHandler) run(w http.ResponseWriter, r *http.Request, sim *weightlab.Simulator, rounds, workers int, drain bool) {
	if drain {
		if n := sim.Size(); n > sh.maxDrain {
			httperr.Errs(w, errs.Warnf("drain supports at most %d items, table has %d", sh.maxDrain, n))
			return
		}
		d, used, err := sim.DrainContext(r.Context())
		if err != nil {
			httperr.Errs(w, errs.Wrap(err, "drain err"))
			return
		}
		sh.metrics.SimDraws(len(d.Order))
		writeJSON(w, http.StatusOK, SimResponse{Drain: d, UsedTime: used.Milliseconds()})
		return
	}
	workers = max(1, workers)
	if workers > sh.maxWorkers {
		httperr.Errs(w, errs.Warnf("workers must be between 1 and %d", sh.maxWorkers))
		return
	}
	if rounds < 1 || rounds > sh.maxRounds/workers {
		httperr.Errs(w, errs.Warnf("rounds * workers must be between 1 and %d", sh.maxRounds))
		return
	}
	st, used, err := sim.SimMP(rounds, workers, false)
	if err != nil {
		// 這裡的錯誤來自simulator 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, "simulate err"))
		return
	}
	sh.metrics.SimDraws(st.Summary.Rounds)
	writeJSON(w, http.StatusOK, SimResponse{Stats: st, UsedTime: used.Milliseconds()})
}

// badConfig 將呼叫端帶入設定的錯誤降為 Warn（400），設定檔載入時的同類錯誤仍是 Fatal。
func badConfig(err error) error {
	return &errs.E{Message: "invalid table config", Cause: err, ErrLv: errs.Warn}
}
