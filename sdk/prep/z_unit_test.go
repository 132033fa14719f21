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

package prep

import (
	"errors"
	"testing"

	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/sdk/qgate"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// assertPanic 驗證函數是否如預期觸發 panic
func assertPanic(t *testing.T, f func(), msg string) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for %s, but got none", msg)
		}
	}()
	f()
}

// mustSampler 建立取樣器，失敗直接中止測試
func mustSampler(t *testing.T, probs []float64, epsilon float64) *Sampler {
	t.Helper()
	s, err := FromLCUProbs(probs, epsilon)
	if err != nil {
		t.Fatalf("FromLCUProbs(%v, %v) failed: %v", probs, epsilon, err)
	}
	return s
}

// -----------------------------------------------------------------------------
// Tests for Layout
// -----------------------------------------------------------------------------

// TestLayout_SelectionWidths 驗證選擇暫存器位寬
// 檢查項目: L=5 -> 3 位、L=8 -> 3 位、L=9 -> 4 位、L=1 -> 0 位
func TestLayout_SelectionWidths(t *testing.T) {
	cases := []struct {
		l    int
		want int
	}{
		{1, 0},
		{2, 1},
		{5, 3},
		{8, 3},
		{9, 4},
	}
	for _, c := range cases {
		sel, _ := Layout(c.l, 4)
		if sel.Width != c.want {
			t.Errorf("Layout(%d, 4) selection width = %d, want %d", c.l, sel.Width, c.want)
		}
		if sel.IterationLength != c.l {
			t.Errorf("Layout(%d, 4) iteration length = %d, want %d", c.l, sel.IterationLength, c.l)
		}
	}
}

// TestLayout_JunkWidths 驗證草稿暫存器位寬與總寬
// 檢查項目: sigma_mu=mu、alt=w、keep=mu、flag=1；junk 總寬 w+2mu+1
func TestLayout_JunkWidths(t *testing.T) {
	sel, junk := Layout(5, 17)
	if junk.SigmaMu != 17 || junk.Alt != 3 || junk.Keep != 17 || junk.Flag != 1 {
		t.Errorf("Layout(5, 17) junk = %+v, want {17 3 17 1}", junk)
	}
	if got, want := junk.Total(), 3+2*17+1; got != want {
		t.Errorf("junk.Total() = %d, want %d", got, want)
	}
	if got, want := sel.Width+junk.Total(), 2*3+2*17+1; got != want {
		t.Errorf("total layout bits = %d, want %d", got, want)
	}
}

// TestLayout_PanicOnBadArgs 驗證不合法引數屬程式錯誤
func TestLayout_PanicOnBadArgs(t *testing.T) {
	assertPanic(t, func() { Layout(0, 4) }, "l=0")
	assertPanic(t, func() { Layout(4, 0) }, "mu=0")
}

// -----------------------------------------------------------------------------
// Tests for factory
// -----------------------------------------------------------------------------

// TestFromLCUProbs_ErrorsPropagate 驗證建表錯誤原樣傳出
func TestFromLCUProbs_ErrorsPropagate(t *testing.T) {
	if _, err := FromLCUProbs([]float64{0.5, 0.6}, 1e-5); !errors.Is(err, alias.ErrInvalidDistribution) {
		t.Errorf("expected ErrInvalidDistribution, got %v", err)
	}
	if _, err := FromLCUProbs([]float64{0.5, 0.5}, -1); !errors.Is(err, alias.ErrPrecision) {
		t.Errorf("expected ErrPrecision, got %v", err)
	}
}

// TestFromLCUProbsDefault 驗證預設容許誤差的工廠
func TestFromLCUProbsDefault(t *testing.T) {
	s, err := FromLCUProbsDefault([]float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("FromLCUProbsDefault failed: %v", err)
	}
	want := mustSampler(t, []float64{0.5, 0.5}, alias.DefaultEpsilon)
	if !s.Equal(want) {
		t.Errorf("default-epsilon sampler differs from explicit one")
	}
}

// TestFromTable_RejectBroken 驗證不合法的表被工廠攔下
func TestFromTable_RejectBroken(t *testing.T) {
	cases := []struct {
		name string
		tab  *alias.Table
	}{
		{"nil", nil},
		{"alt out of range", &alias.Table{Alt: []int{5, 0}, Keep: []uint64{1, 1}, Mu: 2, Size: 2}},
		{"keep exceeds bucket", &alias.Table{Alt: []int{1, 0}, Keep: []uint64{9, 1}, Mu: 2, Size: 2}},
		{"full without self-alias", &alias.Table{Alt: []int{1, 0}, Keep: []uint64{4, 4}, Mu: 2, Size: 2}},
		{"size disagrees", &alias.Table{Alt: []int{0}, Keep: []uint64{1, 1}, Mu: 2, Size: 2}},
	}
	for _, c := range cases {
		if _, err := FromTable(c.tab); !errors.Is(err, alias.ErrInvalidDistribution) {
			t.Errorf("[%s] expected ErrInvalidDistribution, got %v", c.name, err)
		}
	}
}

// -----------------------------------------------------------------------------
// Tests for value semantics
// -----------------------------------------------------------------------------

// TestSampler_EqualAndFingerprint 驗證結構等值與指紋
// 檢查項目: 相同輸入等值且指紋相同；擾動輸入不等值且指紋不同
func TestSampler_EqualAndFingerprint(t *testing.T) {
	a := mustSampler(t, []float64{0.25, 0.75}, 1e-5)
	b := mustSampler(t, []float64{0.25, 0.75}, 1e-5)
	c := mustSampler(t, []float64{0.26, 0.74}, 1e-5)

	if !a.Equal(b) {
		t.Errorf("samplers from identical inputs should be equal")
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("equal samplers must share fingerprint")
	}
	if a.Equal(c) {
		t.Errorf("samplers from different inputs should differ")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Errorf("different tables should not share fingerprint")
	}
}

// TestSampler_FrozenAccessors 驗證存取器回傳副本，凍結內容不可被改動
func TestSampler_FrozenAccessors(t *testing.T) {
	s := mustSampler(t, []float64{0.7, 0.2, 0.05, 0.05}, 1e-4)
	before := s.Fingerprint()

	alt := s.Alt()
	keep := s.Keep()
	for i := range alt {
		alt[i] = 0
	}
	for i := range keep {
		keep[i] = 0
	}

	if s.Fingerprint() != before {
		t.Errorf("mutating accessor copies must not affect the sampler")
	}
}

// TestSampler_Accessors 驗證位寬存取器
func TestSampler_Accessors(t *testing.T) {
	probs := []float64{0.2, 0.2, 0.2, 0.2, 0.2}
	s := mustSampler(t, probs, 1e-5)

	if s.Size() != 5 {
		t.Errorf("Size() = %d, want 5", s.Size())
	}
	if s.SelectionBitsize() != 3 {
		t.Errorf("SelectionBitsize() = %d, want 3", s.SelectionBitsize())
	}
	if s.SigmaMuBitsize() != s.Mu() || s.KeepBitsize() != s.Mu() {
		t.Errorf("sigma_mu/keep bitsize should equal mu=%d, got %d/%d",
			s.Mu(), s.SigmaMuBitsize(), s.KeepBitsize())
	}
	if s.AlternatesBitsize() != s.SelectionBitsize() {
		t.Errorf("alternates bitsize %d should equal selection bitsize %d",
			s.AlternatesBitsize(), s.SelectionBitsize())
	}
	if got, want := s.TotalBits(), 2*s.SelectionBitsize()+2*s.Mu()+1; got != want {
		t.Errorf("TotalBits() = %d, want %d", got, want)
	}
}

// -----------------------------------------------------------------------------
// Tests for decomposition
// -----------------------------------------------------------------------------

// TestDecompose_FiveOrderedSteps 驗證分解恰為五步且順序固定
// 檢查項目: 原語種類順序、步驟參數（N=L 與 N=2^mu）、每step都通過綁定驗證
func TestDecompose_FiveOrderedSteps(t *testing.T) {
	s := mustSampler(t, []float64{0.2, 0.2, 0.2, 0.2, 0.2}, 1e-5)
	ops, err := s.Decompose(s.DefaultRegisters())
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(ops) != 5 {
		t.Fatalf("expected exactly 5 operations, got %d", len(ops))
	}

	wantNames := []string{
		"UniformSuperposition",
		"UniformSuperposition",
		"TableLookup",
		"Comparator",
		"ConditionalExchange",
	}
	for i, op := range ops {
		if op.Gate.Name() != wantNames[i] {
			t.Errorf("step %d: gate %s, want %s", i+1, op.Gate.Name(), wantNames[i])
		}
		if err := op.Validate(); err != nil {
			t.Errorf("step %d: binding validation failed: %v", i+1, err)
		}
	}

	if g := ops[0].Gate.(qgate.UniformSuperposition); g.N != s.Size() {
		t.Errorf("step 1: N = %d, want L = %d", g.N, s.Size())
	}
	if g := ops[1].Gate.(qgate.UniformSuperposition); g.N != 1<<s.Mu() {
		t.Errorf("step 2: N = %d, want 2^mu = %d", g.N, 1<<s.Mu())
	}
}

// TestDecompose_Wiring 驗證每一步綁定到正確的暫存器
func TestDecompose_Wiring(t *testing.T) {
	s := mustSampler(t, []float64{0.11, 0.07, 0.31, 0.17, 0.03, 0.13, 0.05, 0.13}, 1e-4)
	regs := s.DefaultRegisters()
	ops, err := s.Decompose(regs)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	wantOperands := [][]string{
		{"selection"},
		{"sigma_mu"},
		{"selection", "alt", "keep"},
		{"keep", "sigma_mu", "less_than_equal"},
		{"less_than_equal", "alt", "selection"},
	}
	for i, op := range ops {
		if len(op.Operands) != len(wantOperands[i]) {
			t.Fatalf("step %d: %d operands, want %d", i+1, len(op.Operands), len(wantOperands[i]))
		}
		for j, name := range wantOperands[i] {
			if op.Operands[j].Name != name {
				t.Errorf("step %d operand %d: %s, want %s", i+1, j, op.Operands[j].Name, name)
			}
		}
	}
}

// TestDecompose_LookupData 驗證查表資料與凍結內容一致
// 檢查項目: alt 原值、keep 遮罩值；剛好填滿的槽位遮罩後為 0
func TestDecompose_LookupData(t *testing.T) {
	s := mustSampler(t, []float64{0.5, 0.5}, 1e-5)
	ops, err := s.Decompose(s.DefaultRegisters())
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	lookup := ops[2].Gate.(qgate.TableLookup)
	if len(lookup.Tables) != 2 {
		t.Fatalf("expected 2 lookup tables, got %d", len(lookup.Tables))
	}
	for i, a := range s.Alt() {
		if lookup.Tables[0][i] != uint64(a) {
			t.Errorf("alt data[%d] = %d, want %d", i, lookup.Tables[0][i], a)
		}
	}
	for i, k := range lookup.Tables[1] {
		if k != 0 {
			t.Errorf("keep data[%d] = %d, want 0 (full buckets mask to zero)", i, k)
		}
	}
}

// TestDecompose_DataIsolation 驗證分解產物不與取樣器共享可變狀態
func TestDecompose_DataIsolation(t *testing.T) {
	s := mustSampler(t, []float64{0.7, 0.2, 0.05, 0.05}, 1e-4)
	first, err := s.Decompose(s.DefaultRegisters())
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	// 竄改第一次分解拿到的查表資料
	tampered := first[2].Gate.(qgate.TableLookup)
	for i := range tampered.Tables[0] {
		tampered.Tables[0][i] = 99
	}

	second, err := s.Decompose(s.DefaultRegisters())
	if err != nil {
		t.Fatalf("second Decompose failed: %v", err)
	}
	fresh := second[2].Gate.(qgate.TableLookup)
	for i, a := range s.Alt() {
		if fresh.Tables[0][i] != uint64(a) {
			t.Errorf("tampering one decomposition leaked into the next: data[%d] = %d, want %d",
				i, fresh.Tables[0][i], a)
		}
	}
}

// TestDecompose_SizeMismatch 驗證任一綁定位寬不符都被拒絕
func TestDecompose_SizeMismatch(t *testing.T) {
	s := mustSampler(t, []float64{0.2, 0.2, 0.2, 0.2, 0.2}, 1e-5)

	mutate := []struct {
		name string
		f    func(*Registers)
	}{
		{"selection", func(r *Registers) { r.Selection.Width++ }},
		{"sigma_mu", func(r *Registers) { r.SigmaMu.Width-- }},
		{"alt", func(r *Registers) { r.Alt.Width = 0 }},
		{"keep", func(r *Registers) { r.Keep.Width += 2 }},
		{"flag", func(r *Registers) { r.Flag.Width = 2 }},
	}
	for _, m := range mutate {
		regs := s.DefaultRegisters()
		m.f(&regs)
		ops, err := s.Decompose(regs)
		if !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("[%s] expected ErrSizeMismatch, got %v", m.name, err)
		}
		if ops != nil {
			t.Errorf("[%s] no operations may be emitted on mismatch", m.name)
		}
	}
}

// TestDecompose_SingleOutcome 驗證 L=1 的退化佈局仍走滿五步
func TestDecompose_SingleOutcome(t *testing.T) {
	s := mustSampler(t, []float64{1.0}, 1e-5)
	if s.SelectionBitsize() != 0 {
		t.Fatalf("L=1 selection width = %d, want 0", s.SelectionBitsize())
	}
	ops, err := s.Decompose(s.DefaultRegisters())
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(ops) != 5 {
		t.Errorf("expected 5 operations, got %d", len(ops))
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			t.Errorf("step %d: %v", i+1, err)
		}
	}
}
