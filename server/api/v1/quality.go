package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/server/httperr"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
	"github.com/zintix-labs/qprep/tabfmt"
)

// Quality 對一份既有的表快照重新評分。
//
// 快照本身不帶原始分佈（定點表已經過捨入），所以呼叫端要一併附上
// probs 或 weights 當對照組；回傳的就是快照表對這組真值的品質報告。
func Quality(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type QualityRequest struct {
		TableB64U string    `json:"table_b64u"`
		Probs     []float64 `json:"probs,omitempty"`
		Weights   []int     `json:"weights,omitempty"`
	}
	// Post方法限定
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req QualityRequest
	limited := http.MaxBytesReader(w, r.Body, 5<<20)
	defer limited.Close()
	if err := json.NewDecoder(limited).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.TableB64U == "" {
		httperr.Errs(w, errs.NewWarn("table_b64u is required"))
		return
	}
	if (len(req.Probs) == 0) == (len(req.Weights) == 0) {
		httperr.Errs(w, errs.NewWarn("exactly one of probs or weights is required"))
		return
	}

	dump, err := tabfmt.DecodeTableText(req.TableB64U, 0)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	smp, err := dump.ToSampler()
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 用快照的門面資料補齊一份設定，讓報告帶得動出處。
	ds := &spec.DistSetting{
		DistID:  dump.DistID,
		Name:    dump.Name,
		Probs:   req.Probs,
		Weights: req.Weights,
		Epsilon: dump.Epsilon,
	}
	rep, err := stats.Evaluate(ds, smp)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	rep.Done()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}
