package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zintix-labs/qprep/dto"
	"github.com/zintix-labs/qprep/server/httperr"
	"github.com/zintix-labs/qprep/spec"
)

// Decompose 回傳目標分佈在預設暫存器佈局下的五步可逆操作序列。
//
// 目標的指定方式與 Compile 完全相同（dist_id / name / 臨時分佈 / table_state），
// 差別只在回傳的是操作序列視圖而不是表內容。
func (c *CompileHandler) Decompose(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type DecomposeResponse struct {
		DistID spec.DistID     `json:"dist_id"`
		Name   string          `json:"name"`
		Size   int             `json:"size"`
		Mu     int             `json:"mu"`
		Ops    []dto.Operation `json:"ops"`
	}
	// ---
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeCompileRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// 分解不需要品質報告
	req.Quality = false

	ctx := q.Context()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cr, err := c.resolve(ctx, req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	smp := cr.Sampler
	ops, err := smp.Decompose(smp.DefaultRegisters())
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	views, err := dto.NewOperationDTOs(ops)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	resp := DecomposeResponse{
		DistID: cr.DistID,
		Name:   cr.DistName,
		Size:   smp.Size(),
		Mu:     smp.Mu(),
		Ops:    views,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}
