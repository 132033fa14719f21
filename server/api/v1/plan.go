package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/plan"
	"github.com/zintix-labs/qprep/server/httperr"
)

// Plan 在不建表的前提下回傳資源估算。
//
// 兩種模式：
//   - 單點：?l=100&epsilon=1e-4 → 一筆 Estimate。
//   - 掃描：?l=100&lo=1e-6&hi=1e-2&n=7 → 對數等距網格的 SweepResult；
//     另帶 max_bits / max_toffoli / max_qrom 任一時，附上滿足預算的最嚴 epsilon。
//
// 純查詢計算，不碰目錄也不建表，所以做成無狀態 handler。
func Plan(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type PlanSweepResponse struct {
		Sweep  plan.SweepResult `json:"sweep"`
		Picked *plan.Estimate   `json:"picked,omitempty"`
	}
	// Get方法限定
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	// l
	var l int
	if s := q.Get("l"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("l must be integer"))
			return
		}
		l = v
	} else {
		httperr.Errs(w, errs.NewWarn("l is required"))
		return
	}

	// 單點模式
	if s := q.Get("epsilon"); s != "" {
		eps, err := strconv.ParseFloat(s, 64)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("epsilon must be a float"))
			return
		}
		est, err := plan.For(l, eps)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(est)
		return
	}

	// 掃描模式
	loStr := q.Get("lo")
	hiStr := q.Get("hi")
	if loStr == "" || hiStr == "" {
		httperr.Errs(w, errs.NewWarn("epsilon or a lo/hi sweep range is required"))
		return
	}
	lo, err := strconv.ParseFloat(loStr, 64)
	if err != nil {
		httperr.Errs(w, errs.NewWarn("lo must be a float"))
		return
	}
	hi, err := strconv.ParseFloat(hiStr, 64)
	if err != nil {
		httperr.Errs(w, errs.NewWarn("hi must be a float"))
		return
	}
	n := 7
	if s := q.Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("n must be integer"))
			return
		}
		n = v
	}

	grid, err := plan.Grid(lo, hi, n)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	sr, err := plan.Sweep(l, grid)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	resp := PlanSweepResponse{Sweep: sr}

	// 預算挑選（任一上限出現就啟用）
	budget, hasBudget, err := budgetFromQuery(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if hasBudget {
		picked, err := plan.PickEpsilon(l, grid, budget)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		resp.Picked = picked
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func budgetFromQuery(q map[string][]string) (plan.Budget, bool, error) {
	get := func(key string) string {
		if vs := q[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	var b plan.Budget
	has := false
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"max_bits", &b.MaxTotalBits},
		{"max_toffoli", &b.MaxToffoli},
		{"max_qrom", &b.MaxQROMBits},
	} {
		s := get(f.key)
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return plan.Budget{}, false, errs.Warnf("%s must be integer", f.key)
		}
		*f.dst = v
		has = true
	}
	return b, has, nil
}
