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

// Package plan 在不建表的前提下估算編譯結果的資源成本。
//
// 所有數字都能由 (L, epsilon) 直接推出: 精度位元、各暫存器寬度、
// 查表列數與 Toffoli 級成本。用於挑 epsilon、排預算, 不用於驗證
// 實際建表品質 (那是 stats 的事)。
package plan

import (
	"math"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/sdk/prep"
)

// Estimate 單一 (L, epsilon) 組合的資源估算
type Estimate struct {
	Size          int     `json:"Size"`
	Epsilon       float64 `json:"Epsilon"`
	Mu            int     `json:"Mu"`
	SelectionBits int     `json:"SelectionBits"`
	SigmaMuBits   int     `json:"SigmaMuBits"`
	AltBits       int     `json:"AltBits"`
	KeepBits      int     `json:"KeepBits"`
	FlagBits      int     `json:"FlagBits"`
	TotalBits     int     `json:"TotalBits"`
	QROMRows      int     `json:"QROMRows"`
	QROMBits      int     `json:"QROMBits"` // rows * (alt寬 + keep寬)
	UnitProb      float64 `json:"UnitProb"` // 單點離散化誤差上界
	Toffoli       Toffoli `json:"Toffoli"`
}

// Toffoli 首階成本估算
//
// 取教科書構造的首階項: 一元迭代查表 L-1、逐位 Fredkin 交換 w、
// 漣波比較器 mu。非 2 冪的均勻疊加走比較器式振幅放大, 記兩輪
// 比較器成本 2w。這些是規劃用數字, 不是逐閘電路計數。
type Toffoli struct {
	Uniform    int `json:"Uniform"`
	Lookup     int `json:"Lookup"`
	Comparator int `json:"Comparator"`
	Swap       int `json:"Swap"`
	Total      int `json:"Total"`
}

// For 回傳 (l, epsilon) 的資源估算。
//
// epsilon 推不出合法精度時回傳 alias 的哨兵錯誤。
func For(l int, epsilon float64) (*Estimate, error) {
	mu, err := alias.PrecisionFor(l, epsilon)
	if err != nil {
		return nil, err
	}

	sel, junk := prep.Layout(l, mu)
	w := sel.Width

	tof := Toffoli{
		Uniform:    uniformCost(l, w),
		Lookup:     l - 1,
		Comparator: mu,
		Swap:       w,
	}
	tof.Total = tof.Uniform + tof.Lookup + tof.Comparator + tof.Swap

	return &Estimate{
		Size:          l,
		Epsilon:       epsilon,
		Mu:            mu,
		SelectionBits: w,
		SigmaMuBits:   junk.SigmaMu,
		AltBits:       junk.Alt,
		KeepBits:      junk.Keep,
		FlagBits:      junk.Flag,
		TotalBits:     w + junk.Total(),
		QROMRows:      l,
		QROMBits:      l * (w + mu),
		UnitProb:      math.Ldexp(1/float64(l), -mu),
		Toffoli:       tof,
	}, nil
}

// uniformCost 非 2 冪的 L 需要振幅放大, 2 冪只要 Hadamard。
func uniformCost(l int, w int) int {
	if l&(l-1) == 0 {
		return 0
	}
	return 2 * w
}

// Fits 回報估算是否同時滿足 budget 的各項上限 (0 表示不設限)。
func (e *Estimate) Fits(budget Budget) bool {
	if budget.MaxTotalBits > 0 && e.TotalBits > budget.MaxTotalBits {
		return false
	}
	if budget.MaxToffoli > 0 && e.Toffoli.Total > budget.MaxToffoli {
		return false
	}
	if budget.MaxQROMBits > 0 && e.QROMBits > budget.MaxQROMBits {
		return false
	}
	return true
}

// Budget 資源上限, 零值欄位表示該項不設限
type Budget struct {
	MaxTotalBits int
	MaxToffoli   int
	MaxQROMBits  int
}

func (b Budget) valid() error {
	if b.MaxTotalBits < 0 || b.MaxToffoli < 0 || b.MaxQROMBits < 0 {
		return errs.NewWarn("budget limits must not be negative")
	}
	if b.MaxTotalBits == 0 && b.MaxToffoli == 0 && b.MaxQROMBits == 0 {
		return errs.NewWarn("at least one budget limit is required")
	}
	return nil
}
