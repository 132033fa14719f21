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

// Package prep 組裝 coherent alias sampling 的狀態製備取樣器。
//
// 本檔案 (decompose.go) 實作了固定五步的分解契約：
// 把凍結的取樣器綁定到呼叫端配置的暫存器，產出有序的原語套用序列。
package prep

import (
	"errors"
	"fmt"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/qgate"
)

// ErrSizeMismatch : 呼叫端提供的暫存器綁定與取樣器宣告的位寬不符。
var ErrSizeMismatch = errors.New("prep: register size mismatch")

// Registers 是分解時的暫存器綁定：五個具名暫存器，位寬必須
// 與取樣器宣告的佈局完全一致。
type Registers struct {
	Selection qgate.Register
	SigmaMu   qgate.Register
	Alt       qgate.Register
	Keep      qgate.Register
	Flag      qgate.Register
}

// DefaultRegisters 依取樣器佈局產生一組慣用命名的綁定，
// 供測試與單獨使用；組裝端通常會帶入自己的命名。
func (s *Sampler) DefaultRegisters() Registers {
	return Registers{
		Selection: qgate.Register{Name: "selection", Width: s.sel.Width},
		SigmaMu:   qgate.Register{Name: "sigma_mu", Width: s.junk.SigmaMu},
		Alt:       qgate.Register{Name: "alt", Width: s.junk.Alt},
		Keep:      qgate.Register{Name: "keep", Width: s.junk.Keep},
		Flag:      qgate.Register{Name: "less_than_equal", Width: s.junk.Flag},
	}
}

// Decompose 產出固定五步的原語套用序列，順序不因 L 或 mu 改變：
//
// 1) UniformSuperposition(L) 作用於選擇暫存器，建立 [0, L) 的均勻分佈。
//
// 2) UniformSuperposition(2^mu) 作用於 sigma_mu 暫存器；2 的冪次下
// 等同於逐位均勻隨機化，建立 [0, 2^mu) 的均勻分佈。
//
// 3) TableLookup 以選擇暫存器為位址，把 alt[selection] 寫入別名暫存器、
// keep[selection]（遮罩到 mu 位）寫入保留值暫存器。
//
// 4) Comparator 計算 keep <= sigma_mu，結果 XOR 進旗標位；輸入不變。
//
// 5) ConditionalExchange 在旗標為 1 時交換別名暫存器與選擇暫存器。
//
// 執行完畢後選擇暫存器上是表編碼的分佈；四個草稿暫存器殘留與結果
// 相關的狀態，反計算由呼叫端負責。
//
// 任何綁定位寬不符都在第一步產出前以 ErrSizeMismatch 拒絕。
func (s *Sampler) Decompose(regs Registers) ([]qgate.Operation, error) {
	if err := s.checkBinding(regs); err != nil {
		return nil, err
	}

	w := s.sel.Width
	l := s.sel.IterationLength

	// 每次分解都建立獨立的查表資料副本，操作序列不共享可變狀態
	altData := make([]uint64, l)
	for i, a := range s.alt {
		altData[i] = uint64(a)
	}
	keepData := s.Table().KeepMasked()

	ops := []qgate.Operation{
		{
			Gate:     qgate.UniformSuperposition{N: l},
			Operands: []qgate.Register{regs.Selection},
		},
		{
			Gate:     qgate.UniformSuperposition{N: 1 << s.mu},
			Operands: []qgate.Register{regs.SigmaMu},
		},
		{
			Gate: qgate.TableLookup{
				Tables:       [][]uint64{altData, keepData},
				AddrWidth:    w,
				TargetWidths: []int{w, s.mu},
			},
			Operands: []qgate.Register{regs.Selection, regs.Alt, regs.Keep},
		},
		{
			Gate:     qgate.Comparator{WidthA: s.mu, WidthB: s.mu},
			Operands: []qgate.Register{regs.Keep, regs.SigmaMu, regs.Flag},
		},
		{
			Gate:     qgate.ConditionalExchange{Width: w},
			Operands: []qgate.Register{regs.Flag, regs.Alt, regs.Selection},
		},
	}
	return ops, nil
}

// checkBinding 逐一比對五個綁定的位寬，回報第一個不符者。
func (s *Sampler) checkBinding(regs Registers) error {
	checks := []struct {
		reg  qgate.Register
		role string
		want int
	}{
		{regs.Selection, "selection", s.sel.Width},
		{regs.SigmaMu, "sigma_mu", s.junk.SigmaMu},
		{regs.Alt, "alt", s.junk.Alt},
		{regs.Keep, "keep", s.junk.Keep},
		{regs.Flag, "flag", s.junk.Flag},
	}
	for _, c := range checks {
		if c.reg.Width != c.want {
			return errs.Mark(ErrSizeMismatch, "register width disagrees with declared layout",
				fmt.Sprintf("role=%s name=%s width=%d want=%d", c.role, c.reg.Name, c.reg.Width, c.want))
		}
	}
	return nil
}
