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

package plan

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
	"gonum.org/v1/gonum/floats"
)

// Grid 回傳 [lo, hi] 之間對數等距的 n 個 epsilon。
func Grid(lo float64, hi float64, n int) ([]float64, error) {
	if !(lo > 0) {
		return nil, errs.Warnf("grid lower bound must be positive: %v", lo)
	}
	if hi <= lo {
		return nil, errs.Warnf("grid upper bound must exceed lower bound: %v <= %v", hi, lo)
	}
	if n < 2 {
		return nil, errs.Warnf("grid needs at least 2 points: %d given", n)
	}
	return floats.LogSpan(make([]float64, n), lo, hi), nil
}

// SweepResult 一組 epsilon 的估算, 依 epsilon 升冪
type SweepResult []*Estimate

// Sweep 對每個 epsilon 做資源估算。
//
// 任何一點推不出合法精度就整趟失敗; 想跳過無效點用 PickEpsilon。
func Sweep(l int, epsilons []float64) (SweepResult, error) {
	if len(epsilons) == 0 {
		return nil, errs.NewWarn("at least one epsilon is required")
	}
	grid := slices.Clone(epsilons)
	sort.Float64s(grid)

	out := make(SweepResult, 0, len(grid))
	for _, eps := range grid {
		est, err := For(l, eps)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("sweep point epsilon=%v", eps))
		}
		out = append(out, est)
	}
	return out, nil
}

// PickEpsilon 從網格中挑出滿足預算的最嚴 epsilon。
//
// 推不出合法精度的網格點直接跳過 (太嚴的點本來就不該擋住較鬆的候選)。
// 全部不合就回報 Warn。
func PickEpsilon(l int, grid []float64, budget Budget) (*Estimate, error) {
	if len(grid) == 0 {
		return nil, errs.NewWarn("at least one epsilon is required")
	}
	if err := budget.valid(); err != nil {
		return nil, err
	}

	sorted := slices.Clone(grid)
	sort.Float64s(sorted)

	for _, eps := range sorted {
		est, err := For(l, eps)
		if err != nil {
			if errors.Is(err, alias.ErrPrecision) {
				continue
			}
			return nil, err
		}
		if est.Fits(budget) {
			return est, nil
		}
	}
	return nil, errs.Warnf("no epsilon in grid fits budget: l=%d points=%d", l, len(grid))
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (sr SweepResult) Out() {
	fmt.Println("=== Epsilon Sweep ===")
	fmt.Printf("  %-12s %-4s %-10s %-10s %-10s %-10s\n",
		"epsilon", "mu", "total bits", "qrom bits", "toffoli", "unit prob")
	for _, e := range sr {
		fmt.Printf("  %-12.3e %-4d %-10d %-10d %-10d %-10.3e\n",
			e.Epsilon, e.Mu, e.TotalBits, e.QROMBits, e.Toffoli.Total, e.UnitProb)
	}
}
