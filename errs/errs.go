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

// Package errs 定義 weightlab 統一使用的錯誤型別與分級。
//
// 所有對外回傳的錯誤都是 *E，並帶有 ErrLevel，讓最上層（CLI / HTTP 邊界）能判斷嚴重度：
//   - Fatal：系統/不可恢復的問題（設定檔壞掉、I/O 失敗）。
//   - Warn ：呼叫端輸入問題（權重不合法、索引越界、找不到項目），可修正後重試。
//   - Log  ：僅需記錄。
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

func (l ErrLevel) String() string {
	switch l {
	case Fatal:
		return "fatal"
	case Warn:
		return "warn"
	case Log:
		return "log"
	default:
		return ""
	}
}

// ErrLv 等同 l.String()
func ErrLv(l ErrLevel) string { return l.String() }

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端追加的上下文（例如 index=3 weight=0）；
// Cause 串接下層錯誤，通常是套件層級的 sentinel（例如 sampler.ErrInvalidWeight）。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
}

// Error 格式：errlv=warn set weight | extra: index=3 weight=0 (cause: ...)
func (e *E) Error() string {
	var b strings.Builder
	b.WriteString("errlv=")
	b.WriteString(e.ErrLv.String())
	b.WriteByte(' ')
	b.WriteString(e.Message)
	if e.Extra != "" {
		b.WriteString(" | extra: ")
		b.WriteString(e.Extra)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// Wrap 以 msg 包裝 cause。
//
// ErrLevel 規則：
//   - 若 cause 已經是 *E，沿用其 ErrLv（保持原本嚴重度）。
//   - 否則（標準庫或三方錯誤）一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	return WrapWithExtra(cause, msg, "")
}

// WrapWithExtra 與 Wrap 相同，但可附加上下文字串。
//
// sentinel 用法：
//
//	return errs.WrapWithExtra(ErrIndexOutOfRange, "remove at", "index=7 count=3")
//
// 呼叫端以 errors.Is(err, ErrIndexOutOfRange) 判斷錯誤種類。
func WrapWithExtra(cause error, msg string, extra string) *E {
	errLv := Fatal
	if e, ok := AsErr(cause); ok {
		errLv = e.ErrLv
	}
	return &E{Message: msg, Extra: extra, Cause: cause, ErrLv: errLv}
}

// AsErr 取出錯誤鏈中第一個 *E。
func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Level 回傳錯誤的分級；非 *E 的錯誤視為 Fatal，nil 回傳 None。
func Level(err error) ErrLevel {
	if err == nil {
		return None
	}
	if e, ok := AsErr(err); ok {
		return e.ErrLv
	}
	return Fatal
}
