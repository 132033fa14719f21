package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/zintix-labs/qprep/dto"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/server/httperr"
)

// Layout 回傳給定 l 與精度下的暫存器佈局。
//
// mu 與 epsilon 擇一：直接給 mu 就照用，給 epsilon 則先換算成最小可行的 mu。
// 只做位寬代數，不建表。
func Layout(w http.ResponseWriter, r *http.Request) {
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

	// mu / epsilon 擇一
	muStr := q.Get("mu")
	epsStr := q.Get("epsilon")
	if (muStr == "") == (epsStr == "") {
		httperr.Errs(w, errs.NewWarn("exactly one of mu or epsilon is required"))
		return
	}
	var mu int
	if muStr != "" {
		v, err := strconv.Atoi(muStr)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("mu must be integer"))
			return
		}
		mu = v
	} else {
		eps, err := strconv.ParseFloat(epsStr, 64)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("epsilon must be a float"))
			return
		}
		mu, err = alias.PrecisionFor(l, eps)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
	}

	layout, err := dto.NewRegisterLayout(l, mu)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(layout)
}
