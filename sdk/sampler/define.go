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

// Package sampler 提供一系列高效能的加權抽樣演算法與工具
//
// 本檔案 (define.go) 定義套件共用的泛型約束與錯誤 sentinel。
//   - 所有錯誤皆為 errs.Warn 等級（呼叫端輸入問題），以 errors.Is 判斷種類。

package sampler

import "github.com/zintix-labs/weightlab/errs"

// Integers 定義所有底層實現為整數型別的集合
type Integers interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

var (
	// ErrInvalidWeight 權重 <= 0 且策略為 RejectOnInvalid（或建表時遇到負權重/全零）。
	ErrInvalidWeight = errs.NewWarn("invalid weight: must be > 0")
	// ErrIndexOutOfRange 索引不在 [0, Count) 內（Insert 為 [0, Count]）。
	ErrIndexOutOfRange = errs.NewWarn("index out of range")
	// ErrNotFound 以值操作時找不到該項目。
	ErrNotFound = errs.NewWarn("item not found")
	// ErrWeightOverflow 權重或權重總和超出可表示範圍。
	ErrWeightOverflow = errs.NewWarn("weight overflow")
)
