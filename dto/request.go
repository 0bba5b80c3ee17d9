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

package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/weightlab/errs"
)

// maxBodyBytes 是 POST/PUT body 的上限（1MiB）。
const maxBodyBytes = 1 << 20

// MaxDraws 是單次 draw 請求可抽的上限。
const MaxDraws = 10_000

// WeightRequest 調整權重的請求，三種形式擇一：
//   - {"item": "gold", "weight": 5}：設定單一項目權重
//   - {"weight": 5}：所有項目設為同一權重
//   - {"delta": -2}：所有權重加上 delta（負數即扣減）
type WeightRequest struct {
	Item   string `json:"item,omitempty"`
	Weight *int32 `json:"weight,omitempty"`
	Delta  *int32 `json:"delta,omitempty"`
}

// AddItemRequest 新增項目到表尾。
type AddItemRequest struct {
	Item   string `json:"item"`
	Weight int32  `json:"weight"`
}

// SimRequest 模擬請求。
//
// Table 指定 catalog 內的表；Config 可直接帶入一份 YAML/JSON 設定（Format 為 "yaml" 或 "json"），
// 兩者擇一。Seed 省略時由伺服器產生並回報在報表中。
type SimRequest struct {
	Table   string `json:"table,omitempty"`
	Config  string `json:"config,omitempty"`
	Format  string `json:"format,omitempty"`
	Rounds  int    `json:"rounds"`
	Workers int    `json:"workers,omitempty"`
	Seed    *int64 `json:"seed,omitempty"`
	Drain   bool   `json:"drain,omitempty"`
}

// DecodeJSON 嚴格解碼 JSON body：限制大小並拒絕未知欄位。
func DecodeJSON[T any](r *http.Request) (*T, error) {
	if r == nil || r.Body == nil {
		return nil, errs.NewWarn("empty request body")
	}
	body := io.LimitReader(r.Body, maxBodyBytes+1)
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.NewWarn(fmt.Sprintf("read body failed: %v", err))
	}
	if len(raw) > maxBodyBytes {
		return nil, errs.NewWarn("request body too large")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	v := new(T)
	if err := dec.Decode(v); err != nil {
		return nil, errs.NewWarn(fmt.Sprintf("invalid json body: %v", err))
	}
	return v, nil
}

// DecodeWeightRequest 解碼並檢查三種形式恰好擇一。
func DecodeWeightRequest(r *http.Request) (*WeightRequest, error) {
	req, err := DecodeJSON[WeightRequest](r)
	if err != nil {
		return nil, err
	}
	switch {
	case req.Delta != nil && (req.Weight != nil || req.Item != ""):
		return nil, errs.NewWarn("delta cannot be combined with item or weight")
	case req.Delta == nil && req.Weight == nil:
		return nil, errs.NewWarn("weight or delta required")
	}
	return req, nil
}

// DecodeSimRequest 解碼並做基本檢查（合法性由 Lab 判斷）。
func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	req, err := DecodeJSON[SimRequest](r)
	if err != nil {
		return nil, err
	}
	if (req.Table == "") == (req.Config == "") {
		return nil, errs.NewWarn("exactly one of table or config required")
	}
	if req.Config != "" && req.Format != "yaml" && req.Format != "json" {
		return nil, errs.NewWarn(fmt.Sprintf("invalid config format: %q", req.Format))
	}
	if !req.Drain && req.Rounds < 1 {
		return nil, errs.NewWarn("rounds must > 0")
	}
	if req.Workers < 0 {
		return nil, errs.NewWarn("workers must >= 0")
	}
	return req, nil
}

// ParseDrawCount 讀取 query 的 n，省略時為 1。
func ParseDrawCount(r *http.Request) (int, error) {
	s := r.URL.Query().Get("n")
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.NewWarn(fmt.Sprintf("invalid n: %v", err))
	}
	if n < 1 || n > MaxDraws {
		return 0, errs.NewWarn(fmt.Sprintf("n must be in [1, %d]", MaxDraws))
	}
	return n, nil
}

