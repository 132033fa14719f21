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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/buf"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/tabfmt"
)

type CompileRequest struct {
	DistID  string    `json:"dist_id,omitempty"` // 目錄編號（與 name 擇一）
	Name    string    `json:"name,omitempty"`    // 目錄名稱
	Probs   []float64 `json:"probs,omitempty"`   // 臨時分佈：機率
	Weights []int     `json:"weights,omitempty"` // 臨時分佈：權重
	Epsilon *float64  `json:"epsilon,omitempty"` // 誤差預算（省略走預設）
	Quality bool      `json:"quality,omitempty"` // 可選：是否附上品質報告。
	// Contract（強硬約束，避免「快照 + 重編」的雙重語意）：
	//   - 若 table_state 有值，則 dist_id/name/probs/weights/epsilon 必須省略；否則視為 request 格式錯誤。
	//   - 若 table_state 缺省，則走一般編譯：目錄身分與臨時分佈擇一，由上層校驗。
	TableState *SavedTable `json:"table_state,omitempty"` // 可選：由業務端帶回的表格快照（nil=重新編譯；帶 table_b64u=重建/驗證）。
}

// DecodeCompileRequest 會把 HTTP 請求解碼成 CompileRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（dist_id/name/probs/weights/epsilon/quality），
//     probs 與 weights 以逗號分隔。
//     注意：GET 建議僅用於目錄查詢或簡單測試；表格快照（table_state）請使用 POST。
//   - POST：從 JSON body 反序列化（支援 table_state）。
//
// TableState（table_state）語意：
//   - table_state 缺省 / 為 null：視為「重新編譯」。
//   - table_state.table_b64u 有值：視為「重建（rebuild）/ 驗證（verify）」：
//   - 重建：帶入先前回應記錄的 table_b64u，不重跑編譯即可還原同一顆取樣器。
//   - 驗證：重建過程會重跑全部表格不變量並核對指紋，快照遭竄改時直接拒絕。
//   - table_b64u 只接受本服務先前回傳的快照；請求端不得自行拼裝內容。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何編譯合法性校驗；
//     合法性（例如該 dist_id 是否存在、probs 是否成分佈）應由上層決定。
//   - 為避免過大 body 影響服務，POST 會對 body 做大小限制（預設 1MiB）。
//   - POST 會開啟 DisallowUnknownFields()，對未知欄位採用嚴格拒絕，以避免靜默丟資料。
func DecodeCompileRequest(r *http.Request) (*CompileRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(CompileRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.DistID = q.Get("dist_id")
		req.Name = q.Get("name")

		if s := q.Get("probs"); s != "" {
			v, err := parseFloats(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid probs: %v", err))
			}
			req.Probs = v
		}

		if s := q.Get("weights"); s != "" {
			v, err := parseInts(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid weights: %v", err))
			}
			req.Weights = v
		}

		if s := q.Get("epsilon"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid epsilon: %v", err))
			}
			req.Epsilon = &v
		}

		if s := q.Get("quality"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errs.NewWarn("invalid quality value " + err.Error())
			}
			req.Quality = v
		}

		return req, nil

	case http.MethodPost:
		// 防止 body 過大（預設 1MiB）
		const maxBody = 1 << 20
		body := io.LimitReader(r.Body, maxBody)
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return req, nil

	default:
		return nil, fmt.Errorf("method not allowed")
	}
}

// SavedTable 是由業務端帶回的「取樣器可恢復快照」（可選）。
//
// 設計目標：
//   - 編譯結果是凍結值物件，服務可以不保存任何成品；「可重建/可驗證」所需的
//     資料由業務端保存與回送。
//   - 重新編譯：table_state 缺省即可；服務會在回應中回傳本次的 table_b64u。
//   - 重建（Rebuild）：業務端帶入先前記錄的 table_b64u，不重跑編譯即可還原
//     同一顆取樣器（佈局、表格、指紋完全一致）。
//   - 驗證（Verify）：重建時會重跑全部表格不變量並核對指紋；快照損毀或遭竄改
//     時直接拒絕，不會產出近似結果。
//
// 重要約束：
//   - table_b64u 為 opaque payload：業務端必須能 round-trip 保存與回送；
//     請勿做二次編碼（不要把字串再包一層 base64）。
type SavedTable struct {
	// TableB64U：編譯成品的表格快照（QPT1 frame 的 URL-safe base64 字串）。
	//   - 缺省：視為重新編譯。
	//   - 有值：視為重建/驗證（服務從該快照 restore 取樣器）。
	TableB64U string `json:"table_b64u,omitempty"`
}

func (st *SavedTable) HasPayload() bool {
	if st == nil {
		return false
	}
	return st.TableB64U != ""
}

// RebuiltTable 是快照重建的結果：Dump 為快照原文（含身分與來源預算），
// Sampler 已通過全部表格不變量與指紋核對。
type RebuiltTable struct {
	Dump    *tabfmt.TableDump
	Sampler *prep.Sampler
}

// Parse 會把 CompileRequest 轉成可執行的輸入，兩個回傳值恰有一個非 nil：
//
//   - 帶表格快照：解碼並重建取樣器，回傳 (nil, rebuilt, nil)；
//     此時不允許再帶任何編譯欄位。
//   - 一般編譯：回傳 (req, nil, nil)，由上層決定走目錄或臨時分佈。
func (cr *CompileRequest) Parse() (*buf.CompileRequest, *RebuiltTable, error) {
	saved := cr.TableState
	if saved.HasPayload() {
		if cr.DistID != "" || cr.Name != "" || len(cr.Probs) != 0 || len(cr.Weights) != 0 || cr.Epsilon != nil {
			return nil, nil, errs.NewWarn("table_state is set but compile fields are not empty")
		}
		dump, err := tabfmt.DecodeTableText(saved.TableB64U, 0)
		if err != nil {
			return nil, nil, errs.NewWarn("table snapshot decode failed " + err.Error())
		}
		smp, err := dump.ToSampler()
		if err != nil {
			return nil, nil, errs.Wrap(err, "table snapshot rebuild failed")
		}
		return nil, &RebuiltTable{Dump: dump, Sampler: smp}, nil
	}

	req := &buf.CompileRequest{
		DistID:  cr.DistID,
		Name:    cr.Name,
		Probs:   cr.Probs,
		Weights: cr.Weights,
		Epsilon: cr.Epsilon,
	}
	return req, nil, nil
}

// parseFloats 解析逗號分隔的浮點數列；空白會被修剪。
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseInts 解析逗號分隔的整數列；空白會被修剪。
func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
