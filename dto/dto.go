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

package dto

import (
	"fmt"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/sdk/buf"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/sdk/qgate"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
	"github.com/zintix-labs/qprep/tabfmt"
)

type CompileResult struct {
	DistID      spec.DistID          `json:"dist_id,omitempty"`  // 分佈編號（臨時分佈可空）
	DistName    string               `json:"name,omitempty"`     // 分佈名稱
	Size        int                  `json:"size"`               // 結果數 L
	Mu          int                  `json:"mu"`                 // 定點數精度位元
	Epsilon     float64              `json:"epsilon"`            // 誤差預算
	Stage       string               `json:"stage"`              // 最後完成的階段
	BuildNs     int64                `json:"build_ns,omitempty"` // 編譯耗時（奈秒）
	Layout      RegisterLayout       `json:"layout"`             // 暫存器佈局
	QROMRows    int                  `json:"qrom_rows"`          // 查找表列數
	QROMBits    int                  `json:"qrom_bits"`          // 查找表總位元
	Fingerprint string               `json:"fingerprint"`        // 表格指紋
	Alt         []int                `json:"alt,omitempty"`      // 別名表
	Keep        []uint64             `json:"keep,omitempty"`     // 保留值表
	Quality     *stats.QualityReport `json:"quality,omitempty"`  // 品質報告（要求時附上，需先 Done）
	State       TableState           `json:"table_state"`        // 表格快照
}

// RegisterLayout 為對外輸出的暫存器佈局序列化結構。
type RegisterLayout struct {
	SelectionBits int `json:"selection_bits"` // 選擇暫存器
	SigmaMuBits   int `json:"sigma_mu_bits"`  // 均勻亂數暫存器
	AltBits       int `json:"alt_bits"`       // 別名值暫存器
	KeepBits      int `json:"keep_bits"`      // 保留值暫存器
	FlagBits      int `json:"flag_bits"`      // 比較旗標
	TotalBits     int `json:"total_bits"`     // 合計
}

// Operation 為對外輸出的原語套用序列化結構。
type Operation struct {
	Id       int           `json:"id"`               // 序列中的位置
	Gate     string        `json:"gate"`             // 原語名稱
	Detail   string        `json:"detail"`           // 參數摘要
	Operands []Operand     `json:"operands"`         // 依序綁定的暫存器
	Tables   []LookupTable `json:"tables,omitempty"` // 僅 TableLookup 有值
}

type Operand struct {
	Name   string `json:"name"`   // 暫存器名稱
	Width  int    `json:"width"`  // 位寬
	Symbol string `json:"symbol"` // 電路圖線路符號
}

// LookupTable 查找表內容細項
type LookupTable struct {
	Target string   `json:"target"` // 寫入的目標暫存器
	Width  int      `json:"width"`  // 資料位寬
	Rows   []uint64 `json:"rows"`   // 表內容（依位址排列）
}

func NewCompileResultDTO(cr *buf.CompileResult) (CompileResult, error) {
	if cr == nil {
		return CompileResult{}, errs.NewWarn("compile result is nil")
	}
	smp := cr.Sampler
	if smp == nil {
		return CompileResult{}, errs.NewWarn("compile result has no sampler")
	}

	dump := tabfmt.FromSampler(cr.DistID, cr.DistName, cr.Epsilon, smp)
	text, err := tabfmt.EncodeTableText(dump)
	if err != nil {
		return CompileResult{}, errs.Wrap(err, "encode table state failed")
	}

	dto := CompileResult{
		DistID:      cr.DistID,
		DistName:    cr.DistName,
		Size:        smp.Size(),
		Mu:          smp.Mu(),
		Epsilon:     cr.Epsilon,
		Stage:       cr.Stage.String(),
		BuildNs:     cr.BuildNs,
		Layout:      layoutFromSampler(smp),
		QROMRows:    smp.Size(),
		QROMBits:    smp.Size() * (smp.AlternatesBitsize() + smp.KeepBitsize()),
		Fingerprint: dump.Fingerprint,
		Alt:         dump.Alt,
		Keep:        dump.Keep,
		Quality:     cr.Report,
		State:       TableState{TableB64U: text},
	}
	return dto, nil
}

// NewRegisterLayout 由 (L, mu) 算出佈局視圖；不需要實際編譯。
func NewRegisterLayout(l, mu int) (RegisterLayout, error) {
	if l < 1 {
		return RegisterLayout{}, errs.NewWarn(fmt.Sprintf("invalid size: %d", l))
	}
	if mu < 1 || mu > alias.MaxMu {
		return RegisterLayout{}, errs.NewWarn(fmt.Sprintf("invalid mu: %d", mu))
	}
	sel, junk := prep.Layout(l, mu)
	return RegisterLayout{
		SelectionBits: sel.Width,
		SigmaMuBits:   junk.SigmaMu,
		AltBits:       junk.Alt,
		KeepBits:      junk.Keep,
		FlagBits:      junk.Flag,
		TotalBits:     sel.Width + junk.Total(),
	}, nil
}

func NewOperationDTOs(ops []qgate.Operation) ([]Operation, error) {
	if len(ops) == 0 {
		return nil, errs.NewWarn("operation list is empty")
	}

	snap := snapshotLookups(ops)
	out := make([]Operation, len(ops))
	for i, op := range ops {
		if op.Gate == nil {
			return nil, errs.NewWarn(fmt.Sprintf("operation %d has no gate", i))
		}
		out[i] = newOperationDto(i, op, snap)
	}
	return out, nil
}

func newOperationDto(id int, op qgate.Operation, snap *lookupSnapshot) Operation {
	dto := Operation{
		Id:       id,
		Gate:     op.Gate.Name(),
		Detail:   fmt.Sprintf("%v", op.Gate),
		Operands: newOperandDto(op),
	}
	if lk, ok := op.Gate.(qgate.TableLookup); ok {
		dto.Tables = lookupTablesFromSnap(id, lk, op.Operands, snap)
	}
	return dto
}

func newOperandDto(op qgate.Operation) []Operand {
	syms := op.Gate.WireSymbols()
	out := make([]Operand, len(op.Operands))
	for i, r := range op.Operands {
		o := Operand{
			Name:  r.Name,
			Width: r.Width,
		}
		if i < len(syms) {
			o.Symbol = syms[i]
		}
		out[i] = o
	}
	return out
}

func layoutFromSampler(smp *prep.Sampler) RegisterLayout {
	junk := smp.Junk()
	return RegisterLayout{
		SelectionBits: smp.SelectionBitsize(),
		SigmaMuBits:   junk.SigmaMu,
		AltBits:       junk.Alt,
		KeepBits:      junk.Keep,
		FlagBits:      junk.Flag,
		TotalBits:     smp.TotalBits(),
	}
}

// lookupSnapshot
//
// 對查找表資料作一次集中深拷貝快照
// 讓後續Dto時候都只對快照作切片，避免了多次make/拷貝的GC波動
type lookupSnapshot struct {
	Rows   []uint64      // 全部表格資料的一次性深拷貝
	Starts map[int][]int // op 序號 -> 各表格在 Rows 的起點
}

func snapshotLookups(ops []qgate.Operation) *lookupSnapshot {
	s := lookupSnapshot{
		Starts: make(map[int][]int),
	}
	for i, op := range ops {
		lk, ok := op.Gate.(qgate.TableLookup)
		if !ok {
			continue
		}
		starts := make([]int, len(lk.Tables))
		for k, tab := range lk.Tables {
			starts[k] = len(s.Rows)
			s.Rows = append(s.Rows, tab...) // 一次性深拷貝
		}
		s.Starts[i] = starts
	}
	return &s
}

func lookupTablesFromSnap(id int, lk qgate.TableLookup, regs []qgate.Register, snap *lookupSnapshot) []LookupTable {
	starts, ok := snap.Starts[id]
	if !ok || len(starts) != len(lk.Tables) {
		return nil
	}
	out := make([]LookupTable, len(lk.Tables))
	for k, tab := range lk.Tables {
		lt := LookupTable{
			Rows: snap.Rows[starts[k] : starts[k]+len(tab)], // 不拷貝
		}
		if k < len(lk.TargetWidths) {
			lt.Width = lk.TargetWidths[k]
		}
		// 運算元 0 是位址暫存器，目標暫存器從 1 起算
		if k+1 < len(regs) {
			lt.Target = regs[k+1].Name
		}
		out[k] = lt
	}
	return out
}

type TableState struct {
	TableB64U string `json:"table_b64u"` // 必回
}
