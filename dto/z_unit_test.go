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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zintix-labs/qprep/sdk/buf"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/sdk/qgate"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
	"github.com/zintix-labs/qprep/tabfmt"
)

func triSetting() *spec.DistSetting {
	return &spec.DistSetting{
		DistID:  "tri",
		Name:    "Tri",
		Probs:   []float64{0.5, 0.25, 0.25},
		Epsilon: 0.2,
	}
}

func mustSampler(t *testing.T) *prep.Sampler {
	t.Helper()
	ds := triSetting()
	smp, err := prep.FromLCUProbs(ds.Probs, ds.Epsilon)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	return smp
}

func TestDecodeCompileRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/compile?dist_id=tri&name=Tri&probs=0.5,0.25,0.25&epsilon=0.2&quality=1", nil)
	req, err := DecodeCompileRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.DistID != "tri" || req.Name != "Tri" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.Probs) != 3 || req.Probs[0] != 0.5 || req.Probs[2] != 0.25 {
		t.Fatalf("unexpected probs: %v", req.Probs)
	}
	if req.Epsilon == nil || *req.Epsilon != 0.2 {
		t.Fatalf("unexpected epsilon: %+v", req.Epsilon)
	}
	if !req.Quality {
		t.Fatalf("quality flag should be set")
	}
	if req.TableState.HasPayload() {
		t.Fatalf("GET should not carry table state")
	}
}

func TestDecodeCompileRequestPOST(t *testing.T) {
	payload := map[string]any{
		"dist_id": "wsum",
		"weights": []int{7, 2, 1},
		"epsilon": 1e-4,
	}
	data, _ := json.Marshal(payload)
	r := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewReader(data))
	req, err := DecodeCompileRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.DistID != "wsum" || len(req.Weights) != 3 || req.Weights[0] != 7 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Epsilon == nil || *req.Epsilon != 1e-4 {
		t.Fatalf("unexpected epsilon: %+v", req.Epsilon)
	}
}

func TestDecodeCompileRequestRejectsUnknownFields(t *testing.T) {
	data := []byte(`{"dist_id":"tri","probs":[0.5,0.5],"unknown":true}`)
	r := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewReader(data))
	if _, err := DecodeCompileRequest(r); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDecodeCompileRequestRejectsBadValues(t *testing.T) {
	cases := []string{
		"/compile?probs=0.5,abc",
		"/compile?weights=1,,2",
		"/compile?epsilon=tiny",
		"/compile?quality=maybe",
	}
	for _, target := range cases {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		if _, err := DecodeCompileRequest(r); err == nil {
			t.Fatalf("%s: expected error", target)
		}
	}

	r := httptest.NewRequest(http.MethodPut, "/compile", nil)
	if _, err := DecodeCompileRequest(r); err == nil {
		t.Fatalf("expected method not allowed")
	}
}

func TestParseCompileFields(t *testing.T) {
	eps := 0.2
	req := &CompileRequest{
		Probs:   []float64{0.5, 0.5},
		Epsilon: &eps,
		// 空快照物件等同缺省
		TableState: &SavedTable{},
	}
	breq, rebuilt, err := req.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rebuilt != nil {
		t.Fatalf("empty table state should not rebuild")
	}
	if breq == nil || len(breq.Probs) != 2 || breq.Epsilon == nil || *breq.Epsilon != 0.2 {
		t.Fatalf("unexpected compile request: %+v", breq)
	}
	if breq.Weights != nil {
		t.Fatalf("weights should stay empty: %v", breq.Weights)
	}
}

func TestParseRebuild(t *testing.T) {
	smp := mustSampler(t)
	dump := tabfmt.FromSampler("tri", "Tri", 0.2, smp)
	text, err := tabfmt.EncodeTableText(dump)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	payload := fmt.Sprintf(`{"table_state":{"table_b64u":%q}}`, text)
	r := httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader(payload))
	req, err := DecodeCompileRequest(r)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	breq, rebuilt, err := req.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if breq != nil {
		t.Fatalf("rebuild path should not produce compile request: %+v", breq)
	}
	if rebuilt == nil || rebuilt.Dump == nil || rebuilt.Sampler == nil {
		t.Fatalf("unexpected rebuilt table: %+v", rebuilt)
	}
	if rebuilt.Dump.DistID != "tri" || rebuilt.Dump.Epsilon != 0.2 {
		t.Fatalf("unexpected dump identity: %+v", rebuilt.Dump)
	}
	if !rebuilt.Sampler.Equal(smp) {
		t.Fatalf("rebuilt sampler disagrees with original")
	}
}

func TestParseRejectsMixedAndBrokenSnapshot(t *testing.T) {
	smp := mustSampler(t)
	text, err := tabfmt.EncodeTableText(tabfmt.FromSampler("tri", "Tri", 0.2, smp))
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	mixed := &CompileRequest{
		Probs:      []float64{1},
		TableState: &SavedTable{TableB64U: text},
	}
	if _, _, err := mixed.Parse(); err == nil {
		t.Fatalf("expected error for snapshot plus compile fields")
	}

	for _, bad := range []string{"!!!not-base64", "AAAA"} {
		req := &CompileRequest{TableState: &SavedTable{TableB64U: bad}}
		if _, _, err := req.Parse(); err == nil {
			t.Fatalf("%q: expected error for broken snapshot", bad)
		}
	}
}

func TestNewCompileResultDTO(t *testing.T) {
	ds := triSetting()
	smp := mustSampler(t)

	cr := buf.NewCompileResult(ds.DistID, ds.Name)
	cr.AppendSetting(ds)
	cr.AppendSampler(smp)
	rep, err := stats.Evaluate(ds, smp)
	if err != nil {
		t.Fatalf("unexpected evaluate error: %v", err)
	}
	rep.Done()
	cr.AppendReport(rep)
	cr.BuildNs = 123
	cr.End()

	dto, err := NewCompileResultDTO(cr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.DistID != "tri" || dto.DistName != "Tri" || dto.Size != 3 || dto.Mu != 2 {
		t.Fatalf("unexpected identity: %+v", dto)
	}
	if dto.Stage != "done" || dto.BuildNs != 123 || dto.Epsilon != 0.2 {
		t.Fatalf("unexpected stage fields: %+v", dto)
	}
	want := RegisterLayout{SelectionBits: 2, SigmaMuBits: 2, AltBits: 2, KeepBits: 2, FlagBits: 1, TotalBits: 9}
	if dto.Layout != want {
		t.Fatalf("unexpected layout: %+v", dto.Layout)
	}
	if dto.QROMRows != 3 || dto.QROMBits != 12 {
		t.Fatalf("unexpected qrom size: %+v", dto)
	}
	if len(dto.Fingerprint) != 16 {
		t.Fatalf("unexpected fingerprint: %q", dto.Fingerprint)
	}
	if len(dto.Alt) != 3 || len(dto.Keep) != 3 {
		t.Fatalf("unexpected tables: alt=%v keep=%v", dto.Alt, dto.Keep)
	}
	if dto.Quality == nil || !dto.Quality.Error.WithinBudget {
		t.Fatalf("unexpected quality report: %+v", dto.Quality)
	}

	// 快照必回，且能還原同一顆取樣器
	back, err := tabfmt.DecodeTableText(dto.State.TableB64U, 0)
	if err != nil {
		t.Fatalf("unexpected state decode error: %v", err)
	}
	restored, err := back.ToSampler()
	if err != nil {
		t.Fatalf("unexpected state rebuild error: %v", err)
	}
	if !restored.Equal(smp) {
		t.Fatalf("table state does not round-trip")
	}
}

func TestNewCompileResultDTORejects(t *testing.T) {
	if _, err := NewCompileResultDTO(nil); err == nil {
		t.Fatalf("expected error for nil result")
	}

	cr := buf.NewCompileResult("tri", "Tri")
	if _, err := NewCompileResultDTO(cr); err == nil {
		t.Fatalf("expected error for result without sampler")
	}
}

func TestNewOperationDTOs(t *testing.T) {
	smp := mustSampler(t)
	ops, err := smp.Decompose(smp.DefaultRegisters())
	if err != nil {
		t.Fatalf("unexpected decompose error: %v", err)
	}

	dtos, err := NewOperationDTOs(ops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dtos) != 5 {
		t.Fatalf("expected 5 operations, got %d", len(dtos))
	}

	gates := []string{"UniformSuperposition", "UniformSuperposition", "TableLookup", "Comparator", "ConditionalExchange"}
	for i, want := range gates {
		if dtos[i].Id != i || dtos[i].Gate != want {
			t.Fatalf("op %d: unexpected gate: %+v", i, dtos[i])
		}
	}
	if !strings.Contains(dtos[0].Detail, "N=3") {
		t.Fatalf("unexpected detail: %q", dtos[0].Detail)
	}

	lookup := dtos[2]
	if len(lookup.Operands) != 3 || lookup.Operands[0].Name != "selection" || lookup.Operands[0].Symbol != "In" {
		t.Fatalf("unexpected lookup operands: %+v", lookup.Operands)
	}
	if len(lookup.Tables) != 2 {
		t.Fatalf("expected 2 lookup tables, got %d", len(lookup.Tables))
	}
	if lookup.Tables[0].Target != "alt" || lookup.Tables[1].Target != "keep" {
		t.Fatalf("unexpected lookup targets: %+v", lookup.Tables)
	}
	if lookup.Tables[0].Width != 2 || lookup.Tables[1].Width != 2 {
		t.Fatalf("unexpected lookup widths: %+v", lookup.Tables)
	}

	alt := smp.Alt()
	masked := smp.Table().KeepMasked()
	for i := 0; i < smp.Size(); i++ {
		if lookup.Tables[0].Rows[i] != uint64(alt[i]) {
			t.Fatalf("alt row %d: got %d want %d", i, lookup.Tables[0].Rows[i], alt[i])
		}
		if lookup.Tables[1].Rows[i] != masked[i] {
			t.Fatalf("keep row %d: got %d want %d", i, lookup.Tables[1].Rows[i], masked[i])
		}
	}

	if len(dtos[4].Operands) != 3 || dtos[4].Operands[0].Name != "less_than_equal" {
		t.Fatalf("unexpected exchange operands: %+v", dtos[4].Operands)
	}
}

func TestNewOperationDTOsRejects(t *testing.T) {
	if _, err := NewOperationDTOs(nil); err == nil {
		t.Fatalf("expected error for empty operation list")
	}
	if _, err := NewOperationDTOs([]qgate.Operation{{}}); err == nil {
		t.Fatalf("expected error for operation without gate")
	}
}

func TestNewRegisterLayout(t *testing.T) {
	got, err := NewRegisterLayout(3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := RegisterLayout{SelectionBits: 2, SigmaMuBits: 2, AltBits: 2, KeepBits: 2, FlagBits: 1, TotalBits: 9}
	if got != want {
		t.Fatalf("unexpected layout: %+v", got)
	}

	got, err = NewRegisterLayout(2, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SelectionBits != 1 || got.SigmaMuBits != 14 || got.TotalBits != 31 {
		t.Fatalf("unexpected layout: %+v", got)
	}

	for _, bad := range [][2]int{{0, 2}, {3, 0}, {3, 49}} {
		if _, err := NewRegisterLayout(bad[0], bad[1]); err == nil {
			t.Fatalf("(%d,%d): expected error", bad[0], bad[1])
		}
	}
}

type costFixed struct {
	TCount int    `yaml:"t_count"`
	Origin string `yaml:"origin"`
}

func TestRenderFixed(t *testing.T) {
	RegisterFixedRender[*costFixed]("cost")

	out := RenderFixed(map[string]any{
		"cost": map[string]any{"t_count": 12, "origin": "paper"},
		"note": "hello",
	})
	cost, ok := out["cost"].(*costFixed)
	if !ok || cost.TCount != 12 || cost.Origin != "paper" {
		t.Fatalf("unexpected rendered cost: %+v", out["cost"])
	}
	if out["note"] != "hello" {
		t.Fatalf("unregistered key should pass through: %+v", out["note"])
	}

	// 已是型別指標：原樣輸出
	typed := &costFixed{TCount: 7}
	out = RenderFixed(map[string]any{"cost": typed})
	if out["cost"] != any(typed) {
		t.Fatalf("typed value should pass through unchanged")
	}

	// 多寫欄位解不動：原樣輸出
	raw := map[string]any{"t_count": 1, "bogus": true}
	out = RenderFixed(map[string]any{"cost": raw})
	if _, ok := out["cost"].(map[string]any); !ok {
		t.Fatalf("undecodable value should pass through: %+v", out["cost"])
	}

	if RenderFixed(nil) != nil {
		t.Fatalf("empty fixed should render nil")
	}
}

func TestRegisterFixedRenderRequiresPointer(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for non-pointer type")
		}
	}()
	RegisterFixedRender[costFixed]("bad")
}
