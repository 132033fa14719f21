// Package index 提供服務主頁（GET /）。
//
// 僅回一份簡短的服務說明與端點清單，方便第一次連上的人找到入口；不做任何業務邏輯。
package index

import (
	"encoding/json"
	"net/http"
)

// IndexHandlerFn 回傳服務簡介與端點清單。
func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type indexResponse struct {
		Service   string   `json:"service"`
		Endpoints []string `json:"endpoints"`
	}
	resp := indexResponse{
		Service: "qprep",
		Endpoints: []string{
			"GET  /dev",
			"GET  /metrics",
			"GET|POST /v1/compile",
			"GET|POST /v1/decompose",
			"GET  /v1/catalog",
			"GET  /v1/catalog/{id}",
			"GET  /v1/layout",
			"GET  /v1/plan",
			"POST /v1/quality",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
