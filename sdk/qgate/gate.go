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

// Package qgate 定義可逆運算的描述層 (Descriptor Layer)。
//
// 本檔案 (gate.go) 定義了 Gate 介面與四種外部可逆原語的描述子，
// 以及把 Gate 綁定到具體暫存器的 Operation。
//
// 設計原則：
//   - 描述子只攜帶參數與資料（查找表內容、位寬），不含任何執行邏輯；
//     均勻疊加、查表、比較、條件交換的「實作」屬於外部執行域。
//   - 每個描述子宣告其運算元位寬 (OperandWidths)，組裝端據此驗證綁定。
//   - WireSymbols 提供電路圖輸出用的線路符號，與描述子一一對應。
package qgate

import (
	"fmt"
	"math/bits"
	"strings"
)

// Gate 是可逆原語描述子的統一介面。
//
//   - Name: 原語種類的識別名稱。
//   - OperandWidths: 依序宣告每個運算元（暫存器）應有的位寬。
//   - WireSymbols: 與運算元一一對應的電路圖線路符號。
type Gate interface {
	Name() string
	OperandWidths() []int
	WireSymbols() []string
}

// -----------------------------------------------------------------------------
// UniformSuperposition
// -----------------------------------------------------------------------------

// UniformSuperposition 描述「在 [0, N) 上建立均勻分佈」的外部原語。
// 綁定一個位寬 ceil(log2(N)) 的暫存器；N 非 2 的冪時，值域外的值
// 不得出現（由外部原語保證）。N 為 2 的冪時等同於逐位均勻隨機化。
type UniformSuperposition struct {
	N int
}

func (g UniformSuperposition) Name() string { return "UniformSuperposition" }

// OperandWidths : [ceil(log2(N))]
func (g UniformSuperposition) OperandWidths() []int {
	return []int{bits.Len(uint(g.N - 1))}
}

func (g UniformSuperposition) WireSymbols() []string {
	return []string{fmt.Sprintf("UNIFORM(%d)", g.N)}
}

func (g UniformSuperposition) String() string {
	return fmt.Sprintf("UniformSuperposition(N=%d)", g.N)
}

// -----------------------------------------------------------------------------
// TableLookup
// -----------------------------------------------------------------------------

// TableLookup 描述「以位址暫存器查表、把資料寫入目標暫存器」的外部原語。
//
//   - Tables: k 張唯讀資料表，Tables[k][addr] 會被寫入第 k 個目標。
//   - AddrWidth: 位址暫存器位寬。
//   - TargetWidths: 各目標暫存器位寬；資料值必須能放進對應位寬。
//
// 契約：目標暫存器必須從固定的基準狀態開始；同位址、同資料表再套用一次
// 必須恰好自我抵銷（供呼叫端日後反計算）。
type TableLookup struct {
	Tables       [][]uint64
	AddrWidth    int
	TargetWidths []int
}

func (g TableLookup) Name() string { return "TableLookup" }

// OperandWidths : [AddrWidth, TargetWidths...]
func (g TableLookup) OperandWidths() []int {
	ws := make([]int, 0, 1+len(g.TargetWidths))
	ws = append(ws, g.AddrWidth)
	ws = append(ws, g.TargetWidths...)
	return ws
}

func (g TableLookup) WireSymbols() []string {
	syms := make([]string, 0, 1+len(g.TargetWidths))
	syms = append(syms, "In")
	for k := range g.TargetWidths {
		syms = append(syms, fmt.Sprintf("⊕T%d", k))
	}
	return syms
}

func (g TableLookup) String() string {
	rows := 0
	if len(g.Tables) > 0 {
		rows = len(g.Tables[0])
	}
	return fmt.Sprintf("TableLookup(tables=%d, rows=%d, addr=%d)", len(g.Tables), rows, g.AddrWidth)
}

// -----------------------------------------------------------------------------
// Comparator
// -----------------------------------------------------------------------------

// Comparator 描述「計算 a <= b 並把布林結果 XOR 進 1 位輸出」的外部原語。
// 兩個輸入暫存器內容不變。
type Comparator struct {
	WidthA int
	WidthB int
}

func (g Comparator) Name() string { return "Comparator" }

// OperandWidths : [WidthA, WidthB, 1]
func (g Comparator) OperandWidths() []int {
	return []int{g.WidthA, g.WidthB, 1}
}

func (g Comparator) WireSymbols() []string {
	return []string{"In(a)", "In(b)", "⊕(a<=b)"}
}

func (g Comparator) String() string {
	return fmt.Sprintf("Comparator(a=%d, b=%d)", g.WidthA, g.WidthB)
}

// -----------------------------------------------------------------------------
// ConditionalExchange
// -----------------------------------------------------------------------------

// ConditionalExchange 描述「控制位為 1 時交換兩個等寬暫存器內容」的外部原語。
// 控制位內容不變。
type ConditionalExchange struct {
	Width int
}

func (g ConditionalExchange) Name() string { return "ConditionalExchange" }

// OperandWidths : [1, Width, Width]
func (g ConditionalExchange) OperandWidths() []int {
	return []int{1, g.Width, g.Width}
}

func (g ConditionalExchange) WireSymbols() []string {
	return []string{"@", "×(x)", "×(y)"}
}

func (g ConditionalExchange) String() string {
	return fmt.Sprintf("ConditionalExchange(width=%d)", g.Width)
}

// -----------------------------------------------------------------------------
// Operation
// -----------------------------------------------------------------------------

// Operation 是一次「原語套用」：Gate 描述子加上依序綁定的具名暫存器。
// 分解結果就是有序的 Operation 序列；本套件不執行它們。
type Operation struct {
	Gate     Gate
	Operands []Register
}

// Validate 驗證運算元數量與位寬是否符合 Gate 的宣告。
// 組裝端在把操作接入更大的程式前可先行檢查。
func (op Operation) Validate() error {
	want := op.Gate.OperandWidths()
	if len(op.Operands) != len(want) {
		return fmt.Errorf("qgate: %s expects %d operands, got %d", op.Gate.Name(), len(want), len(op.Operands))
	}
	for i, w := range want {
		if op.Operands[i].Width != w {
			return fmt.Errorf("qgate: %s operand %d (%s) width %d, want %d",
				op.Gate.Name(), i, op.Operands[i].Name, op.Operands[i].Width, w)
		}
	}
	return nil
}

// String 以「Gate @ operands」格式輸出，如：
// UniformSuperposition(N=5) @ selection[3]
func (op Operation) String() string {
	names := make([]string, len(op.Operands))
	for i, r := range op.Operands {
		names[i] = r.String()
	}
	return fmt.Sprintf("%v @ %s", op.Gate, strings.Join(names, ", "))
}
