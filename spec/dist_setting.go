package spec

import (
	"fmt"
	"math"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
)

// DistID 是分佈設定的唯一識別碼。
type DistID string

// DistSetting 描述一個待編譯的目標分佈。
//
// 機率來源擇一：
//   - Probs: 浮點機率向量，總和需接近 1。
//   - Weights: 非負整數權重，編譯時以總和正規化（企劃填表常用）。
//
// Epsilon 為逐項機率近似誤差上限；留空（0）時採用預設值。
// Fixed 供下游工具附掛自訂欄位（成本註記、來源出處等），
// 以 DecodeFixed 做嚴格解碼。
type DistSetting struct {
	DistID  DistID         `yaml:"dist_id"  json:"dist_id"`
	Name    string         `yaml:"name"     json:"name"`
	Note    string         `yaml:"note"     json:"note"`
	Probs   []float64      `yaml:"probs"    json:"probs"`
	Weights []int          `yaml:"weights"  json:"weights"`
	Epsilon float64        `yaml:"epsilon"  json:"epsilon"`
	Fixed   map[string]any `yaml:"fixed"    json:"fixed"`
}

// init 填入預設值後執行基本檢查。
func (ds *DistSetting) init() error {
	if ds.Epsilon == 0 {
		ds.Epsilon = alias.DefaultEpsilon
	}
	return ds.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
// 深度的數值驗證（總和容差、精度範圍）由建表階段負責。
func (ds *DistSetting) valid() error {

	if ds.DistID == "" {
		return errs.NewFatal("empty dist_id")
	}
	if ds.Name == "" {
		return errs.NewFatal(fmt.Sprintf("dist_id: %s err:empty name", ds.DistID))
	}

	// 機率來源必須恰好填一種
	if len(ds.Probs) == 0 && len(ds.Weights) == 0 {
		return errs.NewFatal(fmt.Sprintf("dist_id: %s err:neither probs nor weights given", ds.DistID))
	}
	if len(ds.Probs) > 0 && len(ds.Weights) > 0 {
		return errs.NewFatal(fmt.Sprintf("dist_id: %s err:both probs and weights given", ds.DistID))
	}

	for i, w := range ds.Weights {
		if w < 0 {
			return errs.NewFatal(fmt.Sprintf("dist_id: %s err:negative weight at %d", ds.DistID, i))
		}
	}

	if math.IsNaN(ds.Epsilon) || ds.Epsilon < 0 {
		return errs.NewFatal(fmt.Sprintf("dist_id: %s err:invalid epsilon %v", ds.DistID, ds.Epsilon))
	}

	return nil
}

// Size 回傳分佈的結果數 L。
func (ds *DistSetting) Size() int {
	if len(ds.Probs) > 0 {
		return len(ds.Probs)
	}
	return len(ds.Weights)
}

// Probabilities 回傳編譯用的機率向量。
//
//   - Probs 填寫時回傳副本。
//   - Weights 填寫時以權重總和正規化；全零權重回傳錯誤。
func (ds *DistSetting) Probabilities() ([]float64, error) {
	if len(ds.Probs) > 0 {
		out := make([]float64, len(ds.Probs))
		copy(out, ds.Probs)
		return out, nil
	}

	total := int64(0)
	for _, w := range ds.Weights {
		total += int64(w)
	}
	if total == 0 {
		return nil, errs.NewWarn(fmt.Sprintf("dist_id: %s err:all weights are zero", ds.DistID))
	}

	out := make([]float64, len(ds.Weights))
	for i, w := range ds.Weights {
		out[i] = float64(w) / float64(total)
	}
	return out, nil
}
