package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zintix-labs/qprep"
	"github.com/zintix-labs/qprep/dto"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/sdk/buf"
	"github.com/zintix-labs/qprep/server/httperr"
	"github.com/zintix-labs/qprep/server/svrcfg"
	"github.com/zintix-labs/qprep/spec"
)

func (c *CompileHandler) Compile(w http.ResponseWriter, q *http.Request) {
	// 請求方法、結構體校驗
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeCompileRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// 請求解析完成，設置超時 context
	ctx := q.Context()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 開始編譯
	cr, err := c.resolve(ctx, req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	result, err := dto.NewCompileResultDTO(cr)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// resolve 把解析後的請求落成完整的編譯結果封套。
//
// 路徑優先序：
//  1. table_state：重建並驗證快照，不重新編譯。
//  2. dist_id / name 且未覆寫 epsilon：常駐 runtime 直接取成品（快路徑）。
//  3. 其他：現場編譯（目錄設定覆寫 epsilon、或臨時分佈）。
func (c *CompileHandler) resolve(ctx context.Context, req *dto.CompileRequest) (*buf.CompileResult, error) {
	breq, rebuilt, err := req.Parse()
	if err != nil {
		return nil, err
	}

	// 1. 快照重建：身分與表內容都來自快照本身
	if rebuilt != nil {
		if req.Quality {
			// 快照只含 (alt, keep, mu)，沒有來源機率，報告算不出來
			return nil, errs.NewWarn("quality report needs the source distribution, not a snapshot")
		}
		// 快照沒有設定檔可 AppendSetting，規模與預算直接取自 dump
		cr := buf.NewCompileResult(rebuilt.Dump.DistID, rebuilt.Dump.Name)
		cr.Size = rebuilt.Sampler.Size()
		cr.Epsilon = rebuilt.Dump.Epsilon
		cr.AppendSampler(rebuilt.Sampler)
		cr.End()
		return cr, nil
	}

	// 2. 解析目標設定：dist_id 優先、name 次之、否則視為臨時分佈
	fromCatalog := breq.DistID != "" || breq.Name != ""
	var ds *spec.DistSetting
	switch {
	case breq.DistID != "":
		ds, err = c.lab.SettingById(spec.DistID(breq.DistID))
	case breq.Name != "":
		ds, err = c.lab.SettingByName(breq.Name)
	default:
		ds, err = c.adHocSetting(breq)
	}
	if err != nil {
		return nil, err
	}

	if fromCatalog && breq.Epsilon == nil {
		return c.fromRuntime(ctx, ds, req.Quality)
	}
	if fromCatalog {
		// 目錄設定是唯讀的：覆寫 epsilon 時以值拷貝替換
		eff := *ds
		eff.Epsilon = *breq.Epsilon
		ds = &eff
	}
	return c.fresh(ds, req.Quality)
}

// fromRuntime 以常駐成品回填封套；不重編譯，BuildNs 維持 0。
func (c *CompileHandler) fromRuntime(ctx context.Context, ds *spec.DistSetting, quality bool) (*buf.CompileResult, error) {
	smp, err := c.rt.Sampler(ctx, ds.DistID)
	if err != nil {
		return nil, err
	}
	cr := buf.NewCompileResult(ds.DistID, ds.Name)
	cr.AppendSetting(ds)
	cr.AppendSampler(smp)
	if quality {
		rep, err := c.rt.Quality(ctx, ds.DistID)
		if err != nil {
			return nil, err
		}
		cr.AppendReport(rep)
	}
	cr.End()
	return cr, nil
}

// fresh 現場走完整條編譯管線。
func (c *CompileHandler) fresh(ds *spec.DistSetting, quality bool) (*buf.CompileResult, error) {
	cr := buf.NewCompileResult(ds.DistID, ds.Name)
	cr.AppendSetting(ds)

	t0 := time.Now()
	if quality {
		smp, rep, err := qprep.CompileQuality(ds)
		if err != nil {
			return nil, err
		}
		cr.BuildNs = time.Since(t0).Nanoseconds()
		cr.AppendSampler(smp)
		rep.Done()
		cr.AppendReport(rep)
		cr.End()
		return cr, nil
	}

	smp, err := qprep.Compile(ds)
	if err != nil {
		return nil, err
	}
	cr.BuildNs = time.Since(t0).Nanoseconds()
	cr.AppendSampler(smp)
	cr.End()
	return cr, nil
}

// adHocSetting 把臨時分佈包成設定物件；身分固定為 ad-hoc。
func (c *CompileHandler) adHocSetting(breq *buf.CompileRequest) (*spec.DistSetting, error) {
	if len(breq.Probs) == 0 && len(breq.Weights) == 0 {
		return nil, errs.NewWarn("dist_id, name or an ad-hoc distribution is required")
	}
	if len(breq.Probs) > 0 && len(breq.Weights) > 0 {
		return nil, errs.NewWarn("probs and weights are mutually exclusive")
	}
	l := max(len(breq.Probs), len(breq.Weights))
	if l > c.adhoc {
		return nil, errs.Warnf("ad-hoc distribution too large: %d > %d", l, c.adhoc)
	}
	ds := &spec.DistSetting{
		DistID:  "ad-hoc",
		Name:    "ad-hoc",
		Probs:   breq.Probs,
		Weights: breq.Weights,
		Epsilon: alias.DefaultEpsilon,
	}
	if breq.Epsilon != nil {
		ds.Epsilon = *breq.Epsilon
	}
	return ds, nil
}

// ============================================================
// ** CompileHandler **
// ============================================================

type CompileHandler struct {
	lab   *qprep.Qprep
	rt    *qprep.PrepRuntime
	adhoc int // 臨時分佈的 L 上限（來自 SvrCfg.AdHocLimit）
}

func NewCompileHandler(sCfg *svrcfg.SvrCfg) (*CompileHandler, error) {
	rt, err := sCfg.Qprep.BuildRuntime()
	if err != nil {
		return nil, errs.Wrap(err, "build compile handler error")
	}
	registerRuntimeMetrics(rt)
	return &CompileHandler{
		lab:   sCfg.Qprep,
		rt:    rt,
		adhoc: sCfg.AdHocLimit,
	}, nil
}

var runtimeMetricsOnce sync.Once

// registerRuntimeMetrics 把常駐 runtime 的觀測快照掛到 Prometheus default registry。
// 一個 process 只 build 一個 runtime；重複組裝時只有第一個會被觀測。
func registerRuntimeMetrics(rt *qprep.PrepRuntime) {
	runtimeMetricsOnce.Do(func() {
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "qprep",
				Subsystem: "runtime",
				Name:      "tables",
				Help:      "Resident compiled tables.",
			}, func() float64 { return float64(rt.Metrics().Tables) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: "qprep",
				Subsystem: "runtime",
				Name:      "lookups_total",
				Help:      "Sampler lookups served from the resident runtime.",
			}, func() float64 { return float64(rt.Metrics().Lookups) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: "qprep",
				Subsystem: "runtime",
				Name:      "misses_total",
				Help:      "Lookups for dist ids absent from the runtime.",
			}, func() float64 { return float64(rt.Metrics().Misses) }),
		)
	})
}
