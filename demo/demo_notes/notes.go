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

// Package demo_notes 示範 fixed 附註欄位的宣告與註冊方式。
//
// fixed 區塊讓設定檔對下游工具夾帶自訂資料而不動到編譯管線；
// 這裡示範兩種附註：分佈的出處（source）與資源預算（budget）。
// 有註冊輸出轉換的欄位，API 回應會以型別化 JSON 輸出而不是原始 map。
package demo_notes

import (
	"github.com/zintix-labs/qprep/dto"
	"github.com/zintix-labs/qprep/spec"
)

// ============================================================
// ** 註冊 **
// ============================================================

func init() {
	dto.RegisterFixedRender[*SourceNote]("source")
	dto.RegisterFixedRender[*BudgetNote]("budget")
}

// ============================================================
// ** 附註型別宣告 **
// ============================================================

// SourceNote 記錄分佈係數的出處（文獻、基底、1-norm 與項次）。
type SourceNote struct {
	Origin string   `yaml:"origin" json:"origin"`
	Basis  string   `yaml:"basis,omitempty" json:"basis,omitempty"`
	Lambda float64  `yaml:"lambda,omitempty" json:"lambda,omitempty"`
	Terms  []string `yaml:"terms,omitempty" json:"terms,omitempty"`
}

// BudgetNote 記錄這個分佈的資源上限，給規劃工具比對用。
type BudgetNote struct {
	MaxToffoli  int `yaml:"max_toffoli,omitempty" json:"max_toffoli,omitempty"`
	MaxQROMBits int `yaml:"max_qrom_bits,omitempty" json:"max_qrom_bits,omitempty"`
}

// Notes 是整個 fixed 區塊的型別化視圖。
type Notes struct {
	Source *SourceNote `yaml:"source,omitempty"`
	Budget *BudgetNote `yaml:"budget,omitempty"`
}

// Decode 以嚴格模式把一筆設定的 fixed 區塊解成 Notes。
func Decode(ds *spec.DistSetting) (*Notes, error) {
	n := new(Notes)
	if err := spec.DecodeFixed(ds, n); err != nil {
		return nil, err
	}
	return n, nil
}
