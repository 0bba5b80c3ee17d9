package v1

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/zintix-labs/weightlab"
	"github.com/zintix-labs/weightlab/dto"
	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/server/httperr"
	"github.com/zintix-labs/weightlab/server/netsvr"
	"github.com/zintix-labs/weightlab/server/svrcfg"
	"github.com/zintix-labs/weightlab/snapshot"
)

const reqTimeout = 5 * time.Second

// ============================================================
// ** TableHandler **
// ============================================================

// TableHandler 對外提供即時表的查詢、抽樣與權重變更。
type TableHandler struct {
	rt  *weightlab.TableRuntime
	cfg *svrcfg.SvrCfg
}

func NewTableHandler(sCfg *svrcfg.SvrCfg) (*TableHandler, error) {
	rt, err := sCfg.Lab.BuildRuntime()
	if err != nil {
		return nil, errs.Wrap(err, "build table handler error")
	}
	return &TableHandler{rt: rt, cfg: sCfg}, nil
}

// Runtime 回傳背後的 TableRuntime（server 關閉時用）
func (th *TableHandler) Runtime() *weightlab.TableRuntime {
	return th.rt
}

// List GET /v1/tables
func (th *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	names := th.rt.Names()
	views := make([]dto.TableView, 0, len(names))
	for _, name := range names {
		v, err := th.rt.View(ctx, name, false)
		if err != nil {
			th.fail(w, "list tables", err)
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

// Get GET /v1/tables/{table}
func (th *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	v, err := th.rt.View(ctx, netsvr.Param(r, "table"), true)
	if err != nil {
		th.fail(w, "get table", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Draw GET|POST /v1/tables/{table}/draw?n=
func (th *TableHandler) Draw(w http.ResponseWriter, r *http.Request) {
	n, err := dto.ParseDrawCount(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	res, err := th.rt.Draw(ctx, netsvr.Param(r, "table"), n)
	if err != nil {
		th.fail(w, "draw", err)
		return
	}
	th.cfg.Metrics.Draw(res.Table, len(res.Items))
	writeJSON(w, http.StatusOK, res)
}

// Take POST /v1/tables/{table}/take：抽出並移除
func (th *TableHandler) Take(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	res, err := th.rt.DrawThenRemove(ctx, netsvr.Param(r, "table"))
	if err != nil {
		th.fail(w, "take", err)
		return
	}
	th.cfg.Metrics.Draw(res.Table, 1)
	th.cfg.Metrics.Mutation(res.Table, "take")
	writeJSON(w, http.StatusOK, res)
}

// Weights PUT /v1/tables/{table}/weights
func (th *TableHandler) Weights(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeWeightRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	table, op := netsvr.Param(r, "table"), ""
	switch {
	case req.Delta != nil:
		op, err = "add_weight_to_all", th.rt.AddWeightToAll(ctx, table, *req.Delta)
	case req.Item != "":
		op, err = "set_weight", th.rt.SetWeight(ctx, table, req.Item, *req.Weight)
	default:
		op, err = "set_weight_of_all", th.rt.SetWeightOfAll(ctx, table, *req.Weight)
	}
	if err != nil {
		th.fail(w, "update weights", err)
		return
	}
	th.respondMutated(ctx, w, table, op)
}

// AddItem POST /v1/tables/{table}/items
func (th *TableHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeJSON[dto.AddItemRequest](r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	table := netsvr.Param(r, "table")
	if err := th.rt.Add(ctx, table, req.Item, req.Weight); err != nil {
		th.fail(w, "add item", err)
		return
	}
	th.respondMutated(ctx, w, table, "add")
}

// RemoveItem DELETE /v1/tables/{table}/items/{item}
func (th *TableHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	table := netsvr.Param(r, "table")
	if err := th.rt.Remove(ctx, table, netsvr.Param(r, "item")); err != nil {
		th.fail(w, "remove item", err)
		return
	}
	th.respondMutated(ctx, w, table, "remove")
}

// Reset POST /v1/tables/{table}/reset：回到設定檔內容
func (th *TableHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	table := netsvr.Param(r, "table")
	if err := th.rt.Reset(ctx, table); err != nil {
		th.fail(w, "reset", err)
		return
	}
	th.respondMutated(ctx, w, table, "reset")
}

// Snapshot GET /v1/tables/{table}/snapshot
//
// 預設回傳二進位 frame（application/octet-stream）；?format=text 時改回傳 base64url 的 JSON。
func (th *TableHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	table := netsvr.Param(r, "table")
	frame, err := th.rt.Snapshot(ctx, table)
	if err != nil {
		th.fail(w, "snapshot", err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		writeJSON(w, http.StatusOK, dto.SnapshotPayload{Table: table, Snapshot: snapshot.EncodeBase64URL(frame)})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame)
}

// Restore PUT /v1/tables/{table}/snapshot
//
// Content-Type 為 application/json 時讀 SnapshotPayload，否則視 body 為二進位 frame。
func (th *TableHandler) Restore(w http.ResponseWriter, r *http.Request) {
	table := netsvr.Param(r, "table")
	if r.Header.Get("Content-Type") == "application/json" {
		p, err := dto.DecodeJSON[dto.SnapshotPayload](r)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		frame, err := snapshot.DecodeBase64URL(p.Snapshot)
		if err != nil {
			httperr.Errs(w, errs.Wrap(err, "invalid snapshot text"))
			return
		}
		th.restore(w, r, table, func(ctx context.Context) error { return th.rt.Restore(ctx, table, frame) })
		return
	}
	body := http.MaxBytesReader(w, r.Body, snapshot.MaxFrameBytes+binary.MaxVarintLen64)
	th.restore(w, r, table, func(ctx context.Context) error { return th.rt.RestoreFrom(ctx, table, body) })
}

func (th *TableHandler) restore(w http.ResponseWriter, r *http.Request, table string, apply func(context.Context) error) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	if err := apply(ctx); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = errs.WrapWithExtra(snapshot.ErrTooLarge, "read snapshot body", err.Error())
		}
		th.fail(w, "restore", err)
		return
	}
	th.respondMutated(ctx, w, table, "restore")
}

// respondMutated 記錄變更並回傳變更後的表
func (th *TableHandler) respondMutated(ctx context.Context, w http.ResponseWriter, table, op string) {
	v, err := th.rt.View(ctx, table, true)
	if err != nil {
		th.fail(w, "view", err)
		return
	}
	th.cfg.Metrics.Mutation(v.Name, op)
	writeJSON(w, http.StatusOK, v)
}

func (th *TableHandler) fail(w http.ResponseWriter, msg string, err error) {
	httperr.Log(th.cfg.Log, msg, err)
	httperr.Errs(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// header 已送出，只能放棄
		return
	}
}
