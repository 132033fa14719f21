package buf

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/qprep/errs"
)

type CompileRequest struct {
	DistID  string    `json:"dist_id,omitempty"` // 目錄編號（與 name 擇一）
	Name    string    `json:"name,omitempty"`    // 目錄名稱
	Probs   []float64 `json:"probs,omitempty"`   // 臨時分佈：機率
	Weights []int     `json:"weights,omitempty"` // 臨時分佈：權重（與設定檔同為非負整數）
	Epsilon *float64  `json:"epsilon,omitempty"` // 誤差預算（省略走預設）
}

// DecodeCompileRequest 會把 HTTP 請求解碼成 CompileRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（dist_id/name/probs/weights/epsilon），
//     probs 與 weights 以逗號分隔。
//   - POST：從 JSON body 反序列化。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何編譯合法性校驗；
//     合法性（例如該 dist_id 是否存在、probs 是否成分佈）應由上層決定。
//   - 為避免過大 body 影響服務，POST 會對 body 做大小限制（預設 1MiB）。
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
			v, err := parseFloatList(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid probs: %v", err))
			}
			req.Probs = v
		}

		if s := q.Get("weights"); s != "" {
			v, err := parseIntList(s)
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

// parseFloatList 解析逗號分隔的浮點數列；空白會被修剪。
func parseFloatList(s string) ([]float64, error) {
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

// parseIntList 解析逗號分隔的整數列；空白會被修剪。
func parseIntList(s string) ([]int, error) {
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
