package v1

import (
	"context"
	"net/http"

	"github.com/zintix-labs/weightlab/dto"
	"github.com/zintix-labs/weightlab/server/netsvr"
)

// TableStat 是即時表的運行統計。
type TableStat struct {
	Table dto.TableView `json:"table"`
	Draws int64         `json:"draws"`
}

// Stat GET /v1/tables/{table}/stats：目前狀態與啟動以來的抽樣次數
func (th *TableHandler) Stat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	table := netsvr.Param(r, "table")
	v, err := th.rt.View(ctx, table, true)
	if err != nil {
		th.fail(w, "stat", err)
		return
	}
	writeJSON(w, http.StatusOK, TableStat{Table: v, Draws: th.rt.Draws(table)})
}
