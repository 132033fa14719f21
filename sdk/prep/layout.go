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
// 本檔案 (layout.go) 由 (L, mu) 推導暫存器佈局：
// 選擇暫存器的位寬與迭代長度，以及四個草稿 (junk) 暫存器的位寬。
package prep

import "math/bits"

// SelectionDescriptor 描述選擇暫存器：
// Width = ceil(log2(L)) 位，IterationLength = L。
// 位寬允許表示的值可能超過有效結果範圍，只有 [0, L) 是有意義的結果。
type SelectionDescriptor struct {
	Width           int
	IterationLength int
}

// JunkDescriptors 描述四個草稿暫存器的位寬。
// 它們在分解序列結束後會殘留與結果相關的狀態，由呼叫端自行反計算。
type JunkDescriptors struct {
	SigmaMu int // 均勻亂數暫存器，mu 位
	Alt     int // 別名值暫存器，與選擇暫存器等寬
	Keep    int // 保留值暫存器，mu 位
	Flag    int // 比較旗標，固定 1 位
}

// Total 回傳草稿暫存器位寬總和 = ceil(log2(L)) + 2*mu + 1。
func (j JunkDescriptors) Total() int {
	return j.SigmaMu + j.Alt + j.Keep + j.Flag
}

// Layout 是 (L, mu) 的純函式：回傳選擇暫存器與草稿暫存器的佈局。
// L 與 mu 由建表階段保證合法；直接以不合法引數呼叫屬程式錯誤。
func Layout(l, mu int) (SelectionDescriptor, JunkDescriptors) {
	if l < 1 {
		panic("prep: layout requires at least one outcome")
	}
	if mu < 1 {
		panic("prep: layout requires mu >= 1")
	}

	w := bits.Len(uint(l - 1))
	sel := SelectionDescriptor{
		Width:           w,
		IterationLength: l,
	}
	junk := JunkDescriptors{
		SigmaMu: mu,
		Alt:     w,
		Keep:    mu,
		Flag:    1,
	}
	return sel, junk
}
