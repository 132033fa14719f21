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

package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// 整批編譯品質評估
type EstimatorBatch struct {
	ErrStat     ErrStat
	MixStat     MixStat
	OutcomeStat OutcomeStat
}

// 誤差敘事
//
// 以「單表誤差 / 誤差預算」的比值描述整批表的落點
type ErrStat struct {
	ExpMedian PointStat // 描述比值的中位數
	ExpPerc   ExpPerc   // 描述表的分布(對應比值)
	UsePerc   UsePerc   // 描述比值的分布(對應多少比例的表)
}

// 用表的分位數視角看: 最好10%表的預算使用率 最差10%表的預算使用率 ...
type ExpPerc struct {
	ExpP10 PointStat
	ExpP33 PointStat
	ExpP67 PointStat
	ExpP90 PointStat
}

// 用使用率門檻視角看表: 有多少表的預算使用率在10%以內 25%以內 ...
type UsePerc struct {
	Use10 PointStat
	Use25 PointStat
	Use40 PointStat
	Use50 PointStat
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

// 混合帶敘事
type MixStat struct {
	BucketLable []string     // 混合帶標籤
	BucketCount []EventCount // 各混合帶: 每張表落在該帶的桶數是 0/1/2/3+ 的比例
}

// 事件點估計
type EventCount struct {
	Zero PointStat
	One  PointStat
	Two  PointStat
	More PointStat
}

// 對應結果敘事
//
// 每張表的捨入餘裕使用情況, 三態互斥
type OutcomeStat struct {
	Exact PointStat // 零誤差
	Tight PointStat // 誤差 <= 半個單位機率
	Loose PointStat // 其餘
}

// ============================================================
// ** 對外 : 整批編譯品質評估 **
// ============================================================

// EstimatorBatchQuality 整批編譯品質評估
//
// 1. Err 敘事 : 描述整批表的誤差預算使用率分布
//
// 2. Mix 敘事 : 描述各混合帶在整批表中的出現頻率
//
// 3. Outcome 敘事 : 描述整批表把捨入餘裕用到什麼程度(精確、半單位內、以上)
func EstimatorBatchQuality(qs []*QualityReport) *EstimatorBatch {
	// 0. 防禦：空輸入
	n := len(qs)
	out := &EstimatorBatch{}
	if n == 0 {
		return out
	}

	// ------------------------------------------------------------
	// 1) Err 敘事：收集每張表的預算使用率並做分位/CI
	// ------------------------------------------------------------
	ratio := make([]float64, n)
	for i, q := range qs {
		if q.Error.Budget > 0 {
			ratio[i] = q.Error.MaxAbsErr / q.Error.Budget
		}
	}

	// 中位數 (點估計 + 95% CI)
	medHat := quantilePoint(ratio, 0.5)
	medLo, medHi := quantileCI(ratio, 0.5, 0.95)

	// P10, P33, P67, P90 (點估計 + 95% CI)
	p10Hat := quantilePoint(ratio, 0.10)
	p10Lo, p10Hi := quantileCI(ratio, 0.10, 0.95)

	p33Hat := quantilePoint(ratio, 1.0/3.0)
	p33Lo, p33Hi := quantileCI(ratio, 1.0/3.0, 0.95)

	p67Hat := quantilePoint(ratio, 2.0/3.0)
	p67Lo, p67Hi := quantileCI(ratio, 2.0/3.0, 0.95)

	p90Hat := quantilePoint(ratio, 0.90)
	p90Lo, p90Hi := quantileCI(ratio, 0.90, 0.95)

	// 使用率對標：<= 10/25/40/50% 的表比例（CP 95% CI）
	use10Hat, use10CI := percentileCIForValue(ratio, 0.10, 0.95)
	use25Hat, use25CI := percentileCIForValue(ratio, 0.25, 0.95)
	use40Hat, use40CI := percentileCIForValue(ratio, 0.40, 0.95)
	use50Hat, use50CI := percentileCIForValue(ratio, 0.50, 0.95)

	out.ErrStat = ErrStat{
		ExpMedian: PointStat{Hat: medHat, CI: CI{Lo: medLo, Hi: medHi}},
		ExpPerc: ExpPerc{
			ExpP10: PointStat{Hat: p10Hat, CI: CI{Lo: p10Lo, Hi: p10Hi}},
			ExpP33: PointStat{Hat: p33Hat, CI: CI{Lo: p33Lo, Hi: p33Hi}},
			ExpP67: PointStat{Hat: p67Hat, CI: CI{Lo: p67Lo, Hi: p67Hi}},
			ExpP90: PointStat{Hat: p90Hat, CI: CI{Lo: p90Lo, Hi: p90Hi}},
		},
		UsePerc: UsePerc{
			Use10: PointStat{Hat: use10Hat, CI: use10CI},
			Use25: PointStat{Hat: use25Hat, CI: use25CI},
			Use40: PointStat{Hat: use40Hat, CI: use40CI},
			Use50: PointStat{Hat: use50Hat, CI: use50CI},
		},
	}

	// ------------------------------------------------------------
	// 2) Mix 敘事：各混合帶的桶數分布（0/1/2/3+）
	// ------------------------------------------------------------
	labels := Mixing.MixBucketStr()
	L := len(labels)
	out.MixStat = MixStat{BucketLable: labels, BucketCount: make([]EventCount, L)}

	// 對每個混合帶，統計整批表中落帶桶數 0/1/2/3+ 的比例
	for bi := 0; bi < L; bi++ {
		var b0, b1, b2, b3p int
		for _, q := range qs {
			cnt := 0
			if q.Dist != nil && bi < len(q.Dist.Collect) {
				cnt = q.Dist.Collect[bi]
			}
			switch {
			case cnt == 0:
				b0++
			case cnt == 1:
				b1++
			case cnt == 2:
				b2++
			default:
				b3p++
			}
		}
		_, ciB0 := proportionCICP(b0, n, 0.95)
		_, ciB1 := proportionCICP(b1, n, 0.95)
		_, ciB2 := proportionCICP(b2, n, 0.95)
		_, ciB3 := proportionCICP(b3p, n, 0.95)

		out.MixStat.BucketCount[bi] = EventCount{
			Zero: PointStat{Hat: float64(b0) / float64(n), CI: ciB0},
			One:  PointStat{Hat: float64(b1) / float64(n), CI: ciB1},
			Two:  PointStat{Hat: float64(b2) / float64(n), CI: ciB2},
			More: PointStat{Hat: float64(b3p) / float64(n), CI: ciB3},
		}
	}

	// ------------------------------------------------------------
	// 3) Outcome 敘事：Exact / Tight / Loose 比例 + CP 95% CI
	// ------------------------------------------------------------
	var exactK, tightK, looseK int
	for _, q := range qs {
		switch {
		case q.Error.MaxAbsErr == 0:
			exactK++
		case q.Error.MaxAbsErr <= 0.5*q.Error.UnitProb:
			tightK++
		default:
			looseK++
		}
	}

	exactHat, exactCI := proportionCICP(exactK, n, 0.95)
	tightHat, tightCI := proportionCICP(tightK, n, 0.95)
	looseHat, looseCI := proportionCICP(looseK, n, 0.95)

	out.OutcomeStat = OutcomeStat{
		Exact: PointStat{Hat: exactHat, CI: exactCI},
		Tight: PointStat{Hat: tightHat, CI: tightCI},
		Loose: PointStat{Hat: looseHat, CI: looseCI},
	}

	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 問題：給定樣本 data 與門檻 x0，估計 p = P(X ≤ x0) 的點估計與 CI 區間
// 回傳 (pHat, CI)
func percentileCIForValue(data []float64, x0 float64, confidence float64) (pHat float64, ci CI) {
	n := len(data)
	if n == 0 {
		return 0, CI{Lo: 0, Hi: 0}
	}
	// k = 數到 <= x0 的個數
	k := 0
	for _, v := range data {
		if v <= x0 {
			k++
		}
	}
	return proportionCICP(k, n, confidence)
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (est *EstimatorBatch) Out() {
	// 1) Error budget use across tables
	fmt.Println("=== Error Budget Use (Tables) ===")
	errKeys := []string{
		"Median use",
		"P10 use",
		"P33 use",
		"P67 use",
		"P90 use",
		"≤10% use (tables)",
		"≤25% use (tables)",
		"≤40% use (tables)",
		"≤50% use (tables)",
	}
	errMsg := map[string]string{
		"Median use":        fmtHatCIpct01(est.ErrStat.ExpMedian.Hat, est.ErrStat.ExpMedian.CI),
		"P10 use":           fmtHatCIpct01(est.ErrStat.ExpPerc.ExpP10.Hat, est.ErrStat.ExpPerc.ExpP10.CI),
		"P33 use":           fmtHatCIpct01(est.ErrStat.ExpPerc.ExpP33.Hat, est.ErrStat.ExpPerc.ExpP33.CI),
		"P67 use":           fmtHatCIpct01(est.ErrStat.ExpPerc.ExpP67.Hat, est.ErrStat.ExpPerc.ExpP67.CI),
		"P90 use":           fmtHatCIpct01(est.ErrStat.ExpPerc.ExpP90.Hat, est.ErrStat.ExpPerc.ExpP90.CI),
		"≤10% use (tables)": fmtHatCIpct01(est.ErrStat.UsePerc.Use10.Hat, est.ErrStat.UsePerc.Use10.CI),
		"≤25% use (tables)": fmtHatCIpct01(est.ErrStat.UsePerc.Use25.Hat, est.ErrStat.UsePerc.Use25.CI),
		"≤40% use (tables)": fmtHatCIpct01(est.ErrStat.UsePerc.Use40.Hat, est.ErrStat.UsePerc.Use40.CI),
		"≤50% use (tables)": fmtHatCIpct01(est.ErrStat.UsePerc.Use50.Hat, est.ErrStat.UsePerc.Use50.CI),
	}
	printTable("Error Budget Use (Tables)", errKeys, errMsg)

	// 2) Mixing bands (buckets per table in band)
	fmt.Println("\n=== Mixing Bands (buckets per table in band) ===")
	for i, label := range est.MixStat.BucketLable {
		ec := est.MixStat.BucketCount[i]
		fmt.Printf("%-20s : %s\n", label, fmtEventCount(ec))
	}

	// 3) Rounding Outcome
	fmt.Println("\n=== Rounding Outcome ===")
	outcomeKeys := []string{"Exact", "Tight", "Loose"}
	outcomeMsg := map[string]string{
		"Exact": fmtHatCIpct01(est.OutcomeStat.Exact.Hat, est.OutcomeStat.Exact.CI),
		"Tight": fmtHatCIpct01(est.OutcomeStat.Tight.Hat, est.OutcomeStat.Tight.CI),
		"Loose": fmtHatCIpct01(est.OutcomeStat.Loose.Hat, est.OutcomeStat.Loose.CI),
	}
	printTable("Rounding Outcome", outcomeKeys, outcomeMsg)
}

func printTable(title string, keys []string, msg map[string]string) {
	fmt.Println(title)
	maxKeyLen := 0
	for _, k := range keys {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	for _, k := range keys {
		fmt.Printf("  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func fmtEventCount(ec EventCount) string {
	return fmt.Sprintf("0x: %s | 1x: %s | 2x: %s | 3+x: %s",
		fmtHatCIpct01(ec.Zero.Hat, ec.Zero.CI),
		fmtHatCIpct01(ec.One.Hat, ec.One.CI),
		fmtHatCIpct01(ec.Two.Hat, ec.Two.CI),
		fmtHatCIpct01(ec.More.Hat, ec.More.CI),
	)
}
