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

package spec

import (
	"math"
	"testing"

	"github.com/zintix-labs/qprep/sdk/alias"
)

const yamlWeighted = `
dist_id: lcu_h2
name: H2 hamiltonian coefficients
note: demo molecule
weights: [7, 2, 1]
`

const yamlProbs = `
dist_id: skewed
name: skewed demo
probs: [0.7, 0.2, 0.05, 0.05]
epsilon: 1.0e-4
`

// TestGetDistSettingByYAML 驗證 YAML 設定載入與預設值
// 檢查項目: weights 模式可載入、epsilon 留空時補預設值
func TestGetDistSettingByYAML(t *testing.T) {
	ds, err := GetDistSettingByYAML([]byte(yamlWeighted))
	if err != nil {
		t.Fatalf("GetDistSettingByYAML failed: %v", err)
	}
	if ds.DistID != "lcu_h2" {
		t.Errorf("dist_id = %s, want lcu_h2", ds.DistID)
	}
	if ds.Size() != 3 {
		t.Errorf("Size() = %d, want 3", ds.Size())
	}
	if ds.Epsilon != alias.DefaultEpsilon {
		t.Errorf("epsilon default = %v, want %v", ds.Epsilon, alias.DefaultEpsilon)
	}
}

// TestGetDistSettingByYAML_Probs 驗證 probs 模式與明示 epsilon
func TestGetDistSettingByYAML_Probs(t *testing.T) {
	ds, err := GetDistSettingByYAML([]byte(yamlProbs))
	if err != nil {
		t.Fatalf("GetDistSettingByYAML failed: %v", err)
	}
	if ds.Epsilon != 1.0e-4 {
		t.Errorf("epsilon = %v, want 1e-4", ds.Epsilon)
	}
	probs, err := ds.Probabilities()
	if err != nil {
		t.Fatalf("Probabilities failed: %v", err)
	}
	if len(probs) != 4 || probs[0] != 0.7 {
		t.Errorf("probabilities = %v", probs)
	}
}

// TestGetDistSettingByJSON 驗證 JSON 載入走相同的初始化
func TestGetDistSettingByJSON(t *testing.T) {
	data := []byte(`{"dist_id":"j1","name":"json demo","weights":[1,1]}`)
	ds, err := GetDistSettingByJSON(data)
	if err != nil {
		t.Fatalf("GetDistSettingByJSON failed: %v", err)
	}
	if ds.Epsilon != alias.DefaultEpsilon {
		t.Errorf("epsilon default = %v, want %v", ds.Epsilon, alias.DefaultEpsilon)
	}
}

// TestGetDistSettingStrictYAML 驗證嚴格模式攔下未知欄位
func TestGetDistSettingStrictYAML(t *testing.T) {
	bad := []byte(`
dist_id: x
name: typo demo
weights: [1, 2]
epsilonn: 1.0e-4
`)
	if _, err := GetDistSettingStrictYAML(bad); err == nil {
		t.Errorf("strict decode should reject unknown field")
	}

	if _, err := GetDistSettingStrictYAML([]byte(yamlWeighted)); err != nil {
		t.Errorf("strict decode rejected a valid setting: %v", err)
	}
}

// TestDistSetting_Valid 驗證設定檔基本檢查
// 檢查項目: 空 id/name、機率來源缺漏或重複、負權重、負 epsilon
func TestDistSetting_Valid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty dist_id", "name: n\nweights: [1]"},
		{"empty name", "dist_id: d\nweights: [1]"},
		{"no source", "dist_id: d\nname: n"},
		{"both sources", "dist_id: d\nname: n\nweights: [1]\nprobs: [1.0]"},
		{"negative weight", "dist_id: d\nname: n\nweights: [1, -2]"},
		{"negative epsilon", "dist_id: d\nname: n\nweights: [1]\nepsilon: -1.0e-5"},
	}
	for _, c := range cases {
		if _, err := GetDistSettingByYAML([]byte(c.yaml)); err == nil {
			t.Errorf("[%s] expected error, got nil", c.name)
		}
	}
}

// TestDistSetting_Probabilities 驗證權重正規化
func TestDistSetting_Probabilities(t *testing.T) {
	ds, err := GetDistSettingByYAML([]byte(yamlWeighted))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	probs, err := ds.Probabilities()
	if err != nil {
		t.Fatalf("Probabilities failed: %v", err)
	}

	want := []float64{0.7, 0.2, 0.1}
	for i, p := range probs {
		if math.Abs(p-want[i]) > 1e-12 {
			t.Errorf("probs[%d] = %v, want %v", i, p, want[i])
		}
	}

	// 回傳副本：改動不應影響設定
	probs[0] = 0
	again, _ := ds.Probabilities()
	if again[0] == 0 {
		t.Errorf("Probabilities must return a copy")
	}
}

// TestDistSetting_ProbabilitiesAllZero 驗證全零權重被拒絕
func TestDistSetting_ProbabilitiesAllZero(t *testing.T) {
	ds := &DistSetting{DistID: "z", Name: "zero", Weights: []int{0, 0}}
	if _, err := ds.Probabilities(); err == nil {
		t.Errorf("all-zero weights should be rejected")
	}
}

// TestDecodeFixed 驗證附掛欄位的嚴格解碼
func TestDecodeFixed(t *testing.T) {
	ds, err := GetDistSettingByYAML([]byte(`
dist_id: fx
name: fixed demo
weights: [1, 1]
fixed:
  source: chemistry
  revision: 3
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	type meta struct {
		Source   string `yaml:"source"`
		Revision int    `yaml:"revision"`
	}
	var m meta
	if err := DecodeFixed(ds, &m); err != nil {
		t.Fatalf("DecodeFixed failed: %v", err)
	}
	if m.Source != "chemistry" || m.Revision != 3 {
		t.Errorf("decoded fixed = %+v", m)
	}

	type wrong struct {
		Missing string `yaml:"missing"`
	}
	var w wrong
	if err := DecodeFixed(ds, &w); err == nil {
		t.Errorf("strict decode should reject unknown keys in fixed block")
	}
}
