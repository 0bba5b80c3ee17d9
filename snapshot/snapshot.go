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

// Package snapshot 負責加權表的持久化格式。
//
// 快照只保存 (item, weight) 配對、策略與 PRNG 狀態；alias table 是推導值，
// 還原時以批次建構重新計算，不會被序列化。
//
// 二進位格式：
//
//	frame := uvarint(len(z)) || z,  z := zstd(json(Table))
//
// 文字格式（HTTP / log）為 Base64URL(frame)。
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/sdk/sampler"
)

// Version 是目前的快照格式版本。
const Version = 1

var (
	ErrCorrupt  = errs.NewWarn("snapshot corrupt")
	ErrTooLarge = errs.NewWarn("snapshot too large")
	ErrVersion  = errs.NewWarn("unsupported snapshot version")
)

// Table 是一張加權表的快照內容。
type Table[T comparable] struct {
	Version int                  `json:"v"`
	Name    string               `json:"name"`
	Policy  sampler.WeightPolicy `json:"policy"`
	Items   []sampler.Item[T]    `json:"items"`
	PRNG    []byte               `json:"prng,omitempty"`
}

// Capture 擷取清單目前的狀態。withPRNG 為 true 時一併保存亂數狀態，還原後的抽樣序列可完全重現。
func Capture[T comparable](name string, l *sampler.WeightedList[T], withPRNG bool) (*Table[T], error) {
	t := &Table[T]{
		Version: Version,
		Name:    name,
		Policy:  l.Policy(),
		Items:   l.Pairs(),
	}
	if withPRNG {
		st, err := l.Core().Snapshot()
		if err != nil {
			return nil, errs.Wrap(err, "snapshot prng failed")
		}
		t.PRNG = st
	}
	return t, nil
}

// Build 以批次建構還原清單。快照帶有 PRNG 狀態時會先還原到 c。
func (t *Table[T]) Build(c *core.Core) (*sampler.WeightedList[T], error) {
	if t.Version != Version {
		return nil, errs.WrapWithExtra(ErrVersion, "build", fmt.Sprintf("version=%d", t.Version))
	}
	if c == nil {
		c = core.NewRandom()
	}
	if len(t.PRNG) > 0 {
		if err := c.Restore(t.PRNG); err != nil {
			return nil, errs.Wrap(err, "restore prng failed")
		}
	}
	l, err := sampler.NewFrom(c, t.Policy, t.Items)
	if err != nil {
		return nil, errs.WrapWithExtra(err, "rebuild table failed", t.Name)
	}
	return l, nil
}

// Encode 產生二進位 frame。
func Encode[T comparable](t *Table[T]) ([]byte, error) {
	z, err := marshal(t)
	if err != nil {
		return nil, err
	}
	return EncodeBlobFrame(z), nil
}

// Decode 解開 Encode 產生的 frame。
func Decode[T comparable](frame []byte) (*Table[T], error) {
	z, err := DecodeBlobFrame(frame)
	if err != nil {
		return nil, err
	}
	return unmarshal[T](z)
}

// Write 將快照以 frame 格式寫入 w（檔案或 HTTP body），與 Encode 的輸出相同。
func Write[T comparable](w io.Writer, t *Table[T]) error {
	z, err := marshal(t)
	if err != nil {
		return err
	}
	return WriteBlobFrame(w, z)
}

// Read 從 r 讀出一個 frame 並解開；宣告長度超過 maxBytes 時回傳 ErrTooLarge。
func Read[T comparable](r io.Reader, maxBytes uint64) (*Table[T], error) {
	z, err := ReadBlobFrame(r, maxBytes)
	if err != nil {
		return nil, err
	}
	return unmarshal[T](z)
}

func marshal[T comparable](t *Table[T]) ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, errs.Wrap(err, "marshal snapshot failed")
	}
	return EncodeZstd(raw)
}

func unmarshal[T comparable](z []byte) (*Table[T], error) {
	raw, err := DecodeZstd(z)
	if err != nil {
		return nil, err
	}
	t := &Table[T]{}
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, errs.WrapWithExtra(ErrCorrupt, "unmarshal snapshot failed", err.Error())
	}
	if t.Version != Version {
		return nil, errs.WrapWithExtra(ErrVersion, "decode", fmt.Sprintf("version=%d", t.Version))
	}
	return t, nil
}

func EncodeText[T comparable](t *Table[T]) (string, error) {
	b, err := Encode(t)
	if err != nil {
		return "", err
	}
	return EncodeBase64URL(b), nil
}

func DecodeText[T comparable](s string) (*Table[T], error) {
	b, err := DecodeBase64URL(s)
	if err != nil {
		return nil, err
	}
	return Decode[T](b)
}
