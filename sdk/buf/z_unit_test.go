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

package buf

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
)

func testDistSetting() *spec.DistSetting {
	return &spec.DistSetting{
		DistID:  "half",
		Name:    "Half",
		Probs:   []float64{0.5, 0.5},
		Epsilon: 0.2,
	}
}

func TestCompileResultLifecycle(t *testing.T) {
	ds := testDistSetting()
	cr := NewCompileResult(ds.DistID, ds.Name)
	if cr.DistID != "half" || cr.DistName != "Half" || cr.Stage != StageLoad {
		t.Fatalf("unexpected initial result: %+v", cr)
	}

	cr.AppendSetting(ds)
	if cr.Size != 2 || cr.Epsilon != 0.2 || cr.Stage != StageCompile {
		t.Fatalf("unexpected result after setting: %+v", cr)
	}

	smp, err := prep.FromLCUProbs(ds.Probs, ds.Epsilon)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	cr.AppendSampler(smp)
	if cr.Sampler == nil || cr.Stage != StageEvaluate {
		t.Fatalf("unexpected result after sampler: %+v", cr)
	}

	rep, err := stats.Evaluate(ds, smp)
	if err != nil {
		t.Fatalf("unexpected evaluate error: %v", err)
	}
	cr.AppendReport(rep)
	if cr.Report == nil || cr.Stage != StageDone {
		t.Fatalf("unexpected result after report: %+v", cr)
	}

	if cr.OK() {
		t.Fatalf("expected not ok before End")
	}
	cr.End()
	if !cr.OK() {
		t.Fatalf("expected ok after End: %+v", cr)
	}

	cr.Reset("next", "Next")
	if cr.DistID != "next" || cr.DistName != "Next" {
		t.Fatalf("reset did not retarget: %+v", cr)
	}
	if cr.Size != 0 || cr.Sampler != nil || cr.Report != nil || cr.Err != nil || cr.IsEnd {
		t.Fatalf("compile result not reset: %+v", cr)
	}
	if cr.Stage != StageLoad {
		t.Fatalf("expected stage load after reset, got %v", cr.Stage)
	}
}

func TestCompileResultAppendAfterEndPanics(t *testing.T) {
	cr := NewCompileResult("half", "Half")
	cr.End()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic when appending after End")
		}
	}()
	cr.AppendSetting(testDistSetting())
}

func TestCompileResultFail(t *testing.T) {
	cr := NewCompileResult("half", "Half")
	cr.AppendSetting(testDistSetting())
	cr.Fail(errs.NewWarn("bad distribution"))

	if !cr.IsEnd || cr.OK() {
		t.Fatalf("expected ended, not ok: %+v", cr)
	}
	if cr.Stage != StageCompile {
		t.Fatalf("expected stage frozen at compile, got %v", cr.Stage)
	}
	if cr.Err == nil || errs.LevelOf(cr.Err) != errs.Warn {
		t.Fatalf("unexpected fail error: %v", cr.Err)
	}
}

func TestStageString(t *testing.T) {
	pairs := map[Stage]string{
		StageLoad:     "load",
		StageCompile:  "compile",
		StageEvaluate: "evaluate",
		StageDone:     "done",
		Stage(200):    "unknown",
	}
	for st, want := range pairs {
		if got := st.String(); got != want {
			t.Fatalf("stage %d: expected %q, got %q", st, want, got)
		}
	}
}

func TestDecodeCompileRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/compile?dist_id=tri&name=Tri&probs=0.5,0.25,0.25&epsilon=0.2", nil)
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
	if req.Probs != nil {
		t.Fatalf("probs should stay empty: %v", req.Probs)
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
