// Copyright 2026 Zintix Labs
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

package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLevel : 錯誤分級，讓最上層（CLI / server handler）能判斷嚴重程度。
//
//   - Fatal：不可回復，應中止當前流程（多為程式錯誤或環境問題）。
//   - Warn：輸入或設定造成的可預期失敗，呼叫端修正後可重試。
//   - Log：僅需記錄，不影響結果。
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端追加的上下文（index、輸入值等）；
// Cause 串接下層錯誤（wrap）；ErrLv 標示嚴重程度。
//
// 搭配哨兵錯誤使用：編譯流程的分類哨兵（如 alias.ErrInvalidDistribution）
// 會被放進 Cause，errors.Is 可經由 Unwrap 鏈比對到分類。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// New 依嚴重程度與訊息建立錯誤。
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

func Logf(format string, a ...any) *E {
	return NewLog(fmt.Sprintf(format, a...))
}

// NewWithExtra 與 New 相同，但附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Mark 以哨兵錯誤為分類建立一個 Warn 級的 *E。
//
// 這是本庫最常用的建構方式：sentinel 決定 errors.Is 的比對目標，
// msg / extra 描述這次具體哪裡錯。
//
//	return errs.Mark(ErrInvalidDistribution, "negative probability",
//	    fmt.Sprintf("index=%d value=%v", i, p))
func Mark(sentinel error, msg string, extra string) *E {
	e := NewWithExtra(Warn, msg, extra)
	e.Cause = sentinel
	return e
}

// Wrap 使用給定訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel 規則：
//   - 若 cause 已經是 *E，沿用其 ErrLv（保持原本嚴重度）。
//   - 若 cause 不是本包的 *E（多半是標準庫或三方依賴錯誤），一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	var e *E
	errLv := Fatal
	if errors.As(cause, &e) {
		errLv = e.ErrLv
	}
	r := New(errLv, msg)
	r.Cause = cause
	return r
}

// WrapWithExtra 同 Wrap，另附加上下文字串。
func WrapWithExtra(cause error, msg string, extra string) *E {
	var e *E
	errLv := Fatal
	if errors.As(cause, &e) {
		errLv = e.ErrLv
	}
	r := NewWithExtra(errLv, msg, extra)
	r.Cause = cause
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// LevelOf 回傳錯誤的 ErrLevel；非 *E 的錯誤視為 Fatal，nil 為 None。
func LevelOf(err error) ErrLevel {
	if err == nil {
		return None
	}
	if e, ok := AsErr(err); ok {
		return e.ErrLv
	}
	return Fatal
}

// List 聚合多筆具名錯誤（批次編譯逐一失敗時使用）。
// 零值可用；nil error 不會被收錄。
type List struct {
	items []listItem
}

type listItem struct {
	name string
	err  error
}

// Add 收錄一筆具名錯誤；err 為 nil 時不做事。
func (l *List) Add(name string, err error) {
	if err == nil {
		return
	}
	l.items = append(l.items, listItem{name: name, err: err})
}

// Len 回傳已收錄的錯誤數。
func (l *List) Len() int { return len(l.items) }

// Err 將聚合結果轉成單一 error；沒有任何錯誤時回傳 nil。
// 聚合後的 ErrLevel 取所有成員中最嚴重者（Fatal > Warn > Log）。
func (l *List) Err() error {
	if len(l.items) == 0 {
		return nil
	}

	worst := Log
	var sb strings.Builder
	for i, it := range l.items {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "[%s] %v", it.name, it.err)
		if lv := LevelOf(it.err); lv != None && lv < worst {
			worst = lv
		}
	}
	return NewWithExtra(worst, fmt.Sprintf("%d error(s)", len(l.items)), sb.String())
}
