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

package qprep

import (
	"github.com/zintix-labs/qprep/dto"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
)

// Description
//
// 只提供給Dev模式使用的單分佈完整說明，重點在可審計、可重現：
// 佈局寬度、五步操作序列與品質報告一次攤開
type Description struct {
	DistID        spec.DistID          `json:"dist_id"`
	Name          string               `json:"name"`
	Note          string               `json:"note"`
	Size          int                  `json:"size"`
	Mu            int                  `json:"mu"`
	Epsilon       float64              `json:"epsilon"`
	SelectionBits int                  `json:"selection_bits"`
	SigmaMuBits   int                  `json:"sigma_mu_bits"`
	AltBits       int                  `json:"alt_bits"`
	KeepBits      int                  `json:"keep_bits"`
	FlagBits      int                  `json:"flag_bits"`
	TotalBits     int                  `json:"total_bits"`
	QROMRows      int                  `json:"qrom_rows"`
	QROMBits      int                  `json:"qrom_bits"`
	Fingerprint   string               `json:"fingerprint"`
	Ops           []string             `json:"ops"`
	Quality       *stats.QualityReport `json:"quality"`
	Fixed         map[string]any       `json:"fixed,omitempty"` // 下游工具附掛的自訂欄位（過已註冊的輸出轉換）
}

// Describe 編譯單一分佈並攤開完整的佈局、操作與品質資訊。
//
// 與 Compile 不同，這裡會把分解序列逐條轉成可讀文字，
// 適合除錯與審計，不要在熱路徑上使用。
func Describe(ds *spec.DistSetting) (*Description, error) {
	smp, rep, err := CompileQuality(ds)
	if err != nil {
		return nil, err
	}
	rep.Done()

	ops, err := smp.Decompose(smp.DefaultRegisters())
	if err != nil {
		return nil, errs.Wrap(err, "decompose failed")
	}
	lines := make([]string, 0, len(ops))
	for _, op := range ops {
		lines = append(lines, op.String())
	}

	junk := smp.Junk()
	d := &Description{
		DistID:        ds.DistID,
		Name:          ds.Name,
		Note:          ds.Note,
		Size:          smp.Size(),
		Mu:            smp.Mu(),
		Epsilon:       rep.Summary.Epsilon,
		SelectionBits: smp.SelectionBitsize(),
		SigmaMuBits:   junk.SigmaMu,
		AltBits:       junk.Alt,
		KeepBits:      junk.Keep,
		FlagBits:      junk.Flag,
		TotalBits:     smp.TotalBits(),
		QROMRows:      smp.Size(),
		QROMBits:      smp.Size() * (junk.Alt + junk.Keep),
		Fingerprint:   rep.Summary.Fingerprint,
		Ops:           lines,
		Quality:       rep,
		Fixed:         dto.RenderFixed(ds.Fixed),
	}
	return d, nil
}
