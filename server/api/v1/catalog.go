package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/qprep"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/server/httperr"
	"github.com/zintix-labs/qprep/spec"
)

type CatalogHandler struct {
	Qprep *qprep.Qprep
}

func NewCatalogHandler(pb *qprep.Qprep) (*CatalogHandler, error) {
	return &CatalogHandler{Qprep: pb}, nil
}

// Catalog 回傳整個目錄的摘要（依 ID 排序）。
func (ch *CatalogHandler) Catalog(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sums, err := ch.Qprep.Summary()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sums); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// CatalogById 回傳單一分佈的完整說明（佈局、五步操作、指紋）。
//
// ?quality=1 時附上品質報告。注意：Describe 每次都重新編譯，
// 這是審計入口而不是熱路徑；常駐查表請走 /v1/compile。
func (ch *CatalogHandler) CatalogById(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := chi.URLParam(q, "id")
	if id == "" {
		httperr.Errs(w, errs.NewWarn("dist id is required"))
		return
	}

	quality := false
	if s := q.URL.Query().Get("quality"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("quality must be a bool"))
			return
		}
		quality = v
	}

	desc, err := ch.Qprep.DescribeById(spec.DistID(id))
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if !quality {
		desc.Quality = nil
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(desc); err != nil {
		httperr.Errs(w, err)
		return
	}
}
