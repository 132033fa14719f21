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

package alias

import (
	"errors"
	"math"
	"testing"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// mustBuild 建表失敗直接讓測試中止
func mustBuild(t *testing.T, probs []float64, epsilon float64) *Table {
	t.Helper()
	tab, err := Build(probs, epsilon)
	if err != nil {
		t.Fatalf("Build(%v, %v) failed: %v", probs, epsilon, err)
	}
	return tab
}

// checkInvariants 驗證表的結構不變量：
// Alt 落在 [0, Size)、Keep 落在 [0, 2^Mu]、剛好填滿的槽位必自別名、單位總和守恆。
func checkInvariants(t *testing.T, name string, tab *Table) {
	t.Helper()
	bucket := uint64(1) << tab.Mu

	for i := 0; i < tab.Size; i++ {
		if tab.Alt[i] < 0 || tab.Alt[i] >= tab.Size {
			t.Errorf("[%s] alt[%d]=%d out of range [0,%d)", name, i, tab.Alt[i], tab.Size)
		}
		if tab.Keep[i] > bucket {
			t.Errorf("[%s] keep[%d]=%d exceeds bucket %d", name, i, tab.Keep[i], bucket)
		}
		if tab.Keep[i] == bucket && tab.Alt[i] != i {
			t.Errorf("[%s] full bucket %d must self-alias, got alt=%d", name, i, tab.Alt[i])
		}
	}

	acc := uint64(0)
	for l := 0; l < tab.Size; l++ {
		acc += tab.EffectiveUnits(l)
	}
	if acc != tab.TotalUnits() {
		t.Errorf("[%s] mass not conserved: got %d units, want %d", name, acc, tab.TotalUnits())
	}
}

// checkBoundedError 驗證逐項有效機率與原始機率的差距不超過 epsilon
func checkBoundedError(t *testing.T, name string, tab *Table, probs []float64, epsilon float64) {
	t.Helper()
	for l, p := range probs {
		diff := math.Abs(p - tab.EffectiveProb(l))
		if diff > epsilon {
			t.Errorf("[%s] outcome %d: |%.10f - %.10f| = %.3e > epsilon %.3e",
				name, l, p, tab.EffectiveProb(l), diff, epsilon)
		}
	}
}

// -----------------------------------------------------------------------------
// Tests for PrecisionFor
// -----------------------------------------------------------------------------

// TestPrecisionFor_KnownValues 驗證 mu 公式的已知結果
// 檢查項目: mu = ceil(-log2(epsilon*l)) + 1
func TestPrecisionFor_KnownValues(t *testing.T) {
	cases := []struct {
		l       int
		epsilon float64
		want    int
	}{
		{2, 1.0e-5, 17},  // ceil(log2(50000)) + 1
		{4, 1.0e-3, 9},   // ceil(log2(250)) + 1
		{1, 1.0e-5, 18},  // ceil(log2(100000)) + 1
		{4, 0.0625, 3},   // ceil(log2(4)) + 1，epsilon*l 可被精確表示
	}
	for _, c := range cases {
		got, err := PrecisionFor(c.l, c.epsilon)
		if err != nil {
			t.Fatalf("PrecisionFor(%d, %v) failed: %v", c.l, c.epsilon, err)
		}
		if got != c.want {
			t.Errorf("PrecisionFor(%d, %v) = %d, want %d", c.l, c.epsilon, got, c.want)
		}
	}
}

// TestPrecisionFor_Monotonic 驗證 epsilon 越小 mu 越大
func TestPrecisionFor_Monotonic(t *testing.T) {
	last := 0
	for _, eps := range []float64{1e-2, 1e-3, 1e-4, 1e-5, 1e-6} {
		mu, err := PrecisionFor(8, eps)
		if err != nil {
			t.Fatalf("PrecisionFor(8, %v) failed: %v", eps, err)
		}
		if mu <= last {
			t.Errorf("mu should grow as epsilon shrinks: eps=%v mu=%d last=%d", eps, mu, last)
		}
		last = mu
	}
}

// TestPrecisionFor_Reject 驗證不合法的 epsilon
// 檢查項目: epsilon <= 0、NaN、推得 mu 非正、推得 mu 超過上限 都回傳 ErrPrecision
func TestPrecisionFor_Reject(t *testing.T) {
	cases := []struct {
		name    string
		l       int
		epsilon float64
	}{
		{"zero epsilon", 4, 0},
		{"negative epsilon", 4, -1e-5},
		{"nan epsilon", 4, math.NaN()},
		{"huge epsilon implies non-positive mu", 4, 1.0},
		{"tiny epsilon exceeds MaxMu", 4, 1e-30},
	}
	for _, c := range cases {
		if _, err := PrecisionFor(c.l, c.epsilon); !errors.Is(err, ErrPrecision) {
			t.Errorf("[%s] expected ErrPrecision, got %v", c.name, err)
		}
	}
}

// -----------------------------------------------------------------------------
// Tests for Build
// -----------------------------------------------------------------------------

// TestBuild_EvenPair 驗證 [0.5, 0.5] 的精確表示
// 檢查項目: 兩個槽位都剛好填滿，Keep 皆為 2^mu，有效機率恰為 0.5
func TestBuild_EvenPair(t *testing.T) {
	tab := mustBuild(t, []float64{0.5, 0.5}, 1.0e-5)
	checkInvariants(t, "even pair", tab)

	bucket := uint64(1) << tab.Mu
	for i := 0; i < tab.Size; i++ {
		if tab.Keep[i] != bucket {
			t.Errorf("keep[%d] = %d, want full bucket %d", i, tab.Keep[i], bucket)
		}
		if got := tab.EffectiveProb(i); got != 0.5 {
			t.Errorf("effective prob of %d = %v, want exactly 0.5", i, got)
		}
	}
}

// TestBuild_PointMass 驗證 [1, 0, 0, 0] 可以建表
// 檢查項目: 不報錯；結果 0 的有效機率在 1e-3 內貼近 1，其餘貼近 0
func TestBuild_PointMass(t *testing.T) {
	probs := []float64{1.0, 0.0, 0.0, 0.0}
	tab := mustBuild(t, probs, 1.0e-3)
	checkInvariants(t, "point mass", tab)
	checkBoundedError(t, "point mass", tab, probs, 1.0e-3)

	if got := tab.EffectiveProb(0); got != 1.0 {
		t.Errorf("point mass should be exact here: got %v", got)
	}
}

// TestBuild_BoundedError 驗證一般向量的逐項誤差與守恆
func TestBuild_BoundedError(t *testing.T) {
	cases := []struct {
		name    string
		probs   []float64
		epsilon float64
	}{
		{"uniform 5", []float64{0.2, 0.2, 0.2, 0.2, 0.2}, 1.0e-5},
		{"skewed", []float64{0.7, 0.2, 0.05, 0.05}, 1.0e-6},
		{"tiny tail", []float64{0.9999, 0.0001}, 1.0e-5},
		{"longer mixed", []float64{0.11, 0.07, 0.31, 0.17, 0.03, 0.13, 0.05, 0.13}, 1.0e-4},
		{"single outcome", []float64{1.0}, 1.0e-5},
	}
	for _, c := range cases {
		tab := mustBuild(t, c.probs, c.epsilon)
		checkInvariants(t, c.name, tab)
		checkBoundedError(t, c.name, tab, c.probs, c.epsilon)
	}
}

// TestBuild_Determinism 驗證相同輸入產生位元等同的表
func TestBuild_Determinism(t *testing.T) {
	probs := []float64{0.3, 0.25, 0.25, 0.1, 0.1}
	a := mustBuild(t, probs, 1.0e-6)
	b := mustBuild(t, probs, 1.0e-6)

	if !a.Equal(b) {
		t.Fatalf("identical inputs produced different tables:\n a=%+v\n b=%+v", a, b)
	}
}

// TestBuild_Reject 驗證不合法輸入的拒絕路徑
// 檢查項目: 空向量、負值、NaN、Inf、總和偏離 1 都回傳 ErrInvalidDistribution
func TestBuild_Reject(t *testing.T) {
	cases := []struct {
		name  string
		probs []float64
	}{
		{"empty", []float64{}},
		{"negative", []float64{0.5, -0.5, 1.0}},
		{"nan", []float64{0.5, math.NaN()}},
		{"inf", []float64{0.5, math.Inf(1)}},
		{"sum too high", []float64{0.5, 0.6}},
		{"sum too low", []float64{0.2, 0.2}},
	}
	for _, c := range cases {
		_, err := Build(c.probs, 1.0e-5)
		if !errors.Is(err, ErrInvalidDistribution) {
			t.Errorf("[%s] expected ErrInvalidDistribution, got %v", c.name, err)
		}
	}
}

// TestBuild_PrecisionPropagates 驗證 epsilon 錯誤從 Build 原樣傳出
func TestBuild_PrecisionPropagates(t *testing.T) {
	if _, err := Build([]float64{0.5, 0.5}, -1); !errors.Is(err, ErrPrecision) {
		t.Errorf("expected ErrPrecision, got %v", err)
	}
}

// -----------------------------------------------------------------------------
// Tests for Table accessors
// -----------------------------------------------------------------------------

// TestTable_KeepMasked 驗證查表資料的遮罩
// 檢查項目: 剛好填滿的槽位遮罩後為 0，其餘槽位維持原值
func TestTable_KeepMasked(t *testing.T) {
	tab := mustBuild(t, []float64{0.5, 0.5}, 1.0e-5)
	for i, k := range tab.KeepMasked() {
		if k != 0 {
			t.Errorf("masked keep[%d] = %d, want 0 for full bucket", i, k)
		}
	}

	tab = mustBuild(t, []float64{0.7, 0.2, 0.05, 0.05}, 1.0e-4)
	bucket := uint64(1) << tab.Mu
	for i, k := range tab.KeepMasked() {
		if k >= bucket {
			t.Errorf("masked keep[%d] = %d, want < %d", i, k, bucket)
		}
		if tab.Keep[i] < bucket && k != tab.Keep[i] {
			t.Errorf("masked keep[%d] = %d, want %d", i, k, tab.Keep[i])
		}
	}
}

// TestTable_Equal 驗證表的等值比較
func TestTable_Equal(t *testing.T) {
	a := mustBuild(t, []float64{0.25, 0.75}, 1.0e-5)
	b := mustBuild(t, []float64{0.25, 0.75}, 1.0e-5)
	c := mustBuild(t, []float64{0.26, 0.74}, 1.0e-5)

	if !a.Equal(b) {
		t.Errorf("tables from identical inputs should be equal")
	}
	if a.Equal(c) {
		t.Errorf("tables from different inputs should differ")
	}
	if a.Equal(nil) {
		t.Errorf("non-nil table should not equal nil")
	}
}
