// Package dev 提供 qprep 的「內部 Dev Panel」HTTP endpoints。
//
// 目的（ explain the why ）：
//   - 給演算法端 / 後端在開發期快速驗證：挑一個目錄分佈（或直接貼 probs / weights），
//     調 epsilon，然後執行 Compile 或 Decompose，直接看表格內容與電路分解。
//   - 支援可重建（rebuild）：把表格快照（table_b64u）以字串形式在前端顯示，
//     並可貼回執行重建（不重跑編譯即還原同一顆取樣器）。
//
// 注意（ contract ）：
//   - 這不是 production API；它偏向 debug / tooling，行為允許更寬鬆，但仍需維持 deterministic concludes。
//   - 這裡的錯誤處理走 `httperr.Errs`（以 errs.Warn/errs.Fatal 對應 HTTP response）。
//   - 快照與編譯欄位的互斥由前端 + 後端共同保證（Snap takes precedence）：
//     快照非空時前端改打 /v1/compile 與 /v1/decompose 的 table_state 路徑。
package dev

import (
	"embed"
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/zintix-labs/qprep"
	"github.com/zintix-labs/qprep/dto"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/sdk/buf"
	"github.com/zintix-labs/qprep/server/httperr"
	"github.com/zintix-labs/qprep/server/netsvr"
	"github.com/zintix-labs/qprep/server/svrcfg"
	"github.com/zintix-labs/qprep/spec"
)

// Register 註冊 Dev Panel 的 routes。
//
// Routes：
//   - GET  /dev            ：Dev Panel HTML（內嵌 JS）。
//   - GET  /dev/meta       ：回傳 Catalog summary（供前端下拉選單：Distribution）。
//   - POST /dev/compile    ：編譯一個分佈並回傳完整結果（含 alt/keep 與快照）。
//   - POST /dev/decompose  ：編譯後回傳五步分解的文字行（人類可讀）。
//   - GET  /debug/pprof/*  ：標準 runtime profiling（只在 Dev 模式掛載）。
//
// 依賴（dependency）：
//   - 需要 cfg.Qprep 已被上層組裝完成並注入；否則會回 errs.Fatal。
func Register(svr netsvr.NetRouter, cfg *svrcfg.SvrCfg) {
	svr.Get("/dev", devPage)
	svr.Get("/favicon.svg", favicon)
	svr.Get("/dev/meta", devMeta(cfg))
	svr.Post("/dev/compile", devCompile(cfg))
	svr.Post("/dev/decompose", devDecompose(cfg))

	svr.Get("/debug/pprof", pprof.Index)
	svr.Get("/debug/pprof/*", pprof.Index)
	svr.Get("/debug/pprof/cmdline", pprof.Cmdline)
	svr.Get("/debug/pprof/profile", pprof.Profile)
	svr.Get("/debug/pprof/symbol", pprof.Symbol)
	svr.Get("/debug/pprof/trace", pprof.Trace)
}

// devPageHTML 是內嵌的 Dev Panel UI。
//
// UI 行為（contract）：
//   - Distribution：由 /dev/meta 動態載入；第一項為 ad-hoc（手填 probs/weights）。
//   - Snap 與其餘輸入互斥：
//   - Snap 非空 → 其餘輸入會被清空並 disable，動作改走 /v1 的 table_state 路徑。
//   - Probs / Weights 互斥：一邊非空，另一邊會被清空並 disable。
//   - Snap takes precedence（後端 /v1 也會拒絕「快照 + 編譯欄位」的混合請求）。
//   - Rows：
//   - 表格列表（alt/keep）前端 cap 在 4,096 列以避免 DOM 過大。
//
// 回傳呈現：
//   - Compile：Summary 區顯示整體結果（含快照字串，可直接複製）；
//     Alias Table 展開後可點選各列查看該列的 alt/keep 細節。
//   - Decompose：僅顯示五步分解的文字行，不顯示表格。
const devPageHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <link rel="icon" type="image/svg+xml" href="/favicon.svg" />
  <title>qprep Dev</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; background:#111827; border:1px solid #1f2937; border-radius:12px; box-shadow:0 12px 50px rgba(0,0,0,0.35); }
    h1 { margin: 0 0 16px; font-size: 22px; letter-spacing: 0.3px; }
    .grid { display:grid; grid-template-columns: repeat(auto-fit, minmax(180px,1fr)); gap:12px; margin-bottom:12px; }
    label { display:flex; flex-direction:column; gap:6px; font-size: 13px; color:#cbd5e1; }
    input, select { background:#0b1224; color:#e2e8f0; border:1px solid #1f2738; border-radius:8px; padding:10px 12px; font-size:14px; }
    input:focus, select:focus { outline:1px solid #38bdf8; border-color:#38bdf8; }
    .actions { position:relative; display:flex; gap:10px; align-items:center; justify-content:flex-end; margin: 8px 0 14px; }
    button { cursor:pointer; border:none; border-radius:10px; padding:10px 14px; font-weight:600; letter-spacing:0.2px; }
    #btn-compile { background:#38bdf8; color:#0b1224; }
    #btn-decompose { background:#22c55e; color:#0b1224; }
    #btn-clear { background:#1f2937; color:#e2e8f0; border:1px solid #334155; }
    button:disabled { opacity:0.6; cursor:not-allowed; }
    input:disabled, select:disabled {
      opacity: 0.55;
      cursor: not-allowed;
      filter: grayscale(0.25);
    }
    label.is-disabled { opacity: 0.55; }
    label.is-disabled input, label.is-disabled select { pointer-events: none; }
    .hint { font-size: 12px; color:#94a3b8; margin-top:4px; }
    .info { position:absolute; left:50%; transform:translateX(-50%); font-size:13px; color:#94a3b8; }
    .info.warn { color:#f87171; font-weight:600; }
    #summary { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:120px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; margin-bottom:12px; }
    #rowsBox { border:1px solid #1f2737; border-radius:12px; padding:10px; background:#0b1224; margin-bottom:12px; max-height: calc(60vh - 56px); overflow:auto; }
    #rowList { max-height: calc(60vh - 136px); overflow:auto; }
    .row-item { display:grid; grid-template-columns: minmax(3.5em, max-content) minmax(100px, max-content) max-content; align-items:center; column-gap:8px; width:100%; text-align:left; background:none; border:none; padding:6px 10px; color:#e2e8f0; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; cursor:pointer; border-left: 4px solid transparent; }
    .row-item:hover { background:#1f2937; border-left-color:#38bdf8; }
    .row-item.selected { background:#2563eb; border-left-color:#60a5fa; }
    .row-index { color:#94a3b8; text-align:right; justify-self:end; min-width:3.5em; font-variant-numeric: tabular-nums; }
    .row-alt { text-align:right; justify-self:end; font-variant-numeric: tabular-nums; }
    .row-keep { text-align:right; justify-self:end; font-variant-numeric: tabular-nums; color:#94a3b8; }
    .row-keep.full { color:#22c55e; font-weight:600; }
    #detail { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:220px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; display:none; }
    .note { font-size:12px; color:#94a3b8; margin-top:4px; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>qprep Dev Panel</h1>
    <div class="grid">
      <label>Distribution
        <select id="dist"></select>
      </label>
      <label>Epsilon
        <input id="epsilon" type="text" inputmode="decimal" placeholder="Empty = default" />
      </label>
      <label>Probs (comma)
        <input id="probs" type="text" placeholder="0.5, 0.25, 0.25" />
      </label>
      <label>Weights (comma)
        <input id="weights" type="text" placeholder="7, 2, 1" />
      </label>
      <label>Snap(base64url)
        <input id="snap" type="text" placeholder="Paste table snapshot (base64url)" />
      </label>
    </div>
    <div class="actions">
      <button id="btn-compile">Compile</button>
      <button id="btn-decompose">Decompose</button>
      <button id="btn-clear">Clear</button>
      <span class="info" id="info"></span>
    </div>

    <pre id="summary"></pre>

    <details id="rowsBox" style="display:none;">
      <summary>Alias Table</summary>
      <div id="rowList"></div>
    </details>

    <pre id="detail" style="display:none;"></pre>
  </div>
<script>
const state = { meta: null, rows: [] };
const distSel = document.getElementById('dist');
const epsilonInput = document.getElementById('epsilon');
const probsInput = document.getElementById('probs');
const weightsInput = document.getElementById('weights');
const snapInput = document.getElementById('snap');
const summary = document.getElementById('summary');
const rowsBox = document.getElementById('rowsBox');
const rowList = document.getElementById('rowList');
const detail = document.getElementById('detail');
const infoEl = document.getElementById('info');
const btnCompile = document.getElementById('btn-compile');
const btnDecompose = document.getElementById('btn-decompose');
const btnClear = document.getElementById('btn-clear');
const numberFormatter = new Intl.NumberFormat('en-US');

function setDisabled(el, disabled) {
  el.disabled = disabled;
  const label = el.closest('label');
  if (label) label.classList.toggle('is-disabled', disabled);
}

function syncInputLocks() {
  const snapValue = snapInput.value.trim();
  if (snapValue !== '') {
    distSel.value = '';
    epsilonInput.value = '';
    probsInput.value = '';
    weightsInput.value = '';
    setDisabled(distSel, true);
    setDisabled(epsilonInput, true);
    setDisabled(probsInput, true);
    setDisabled(weightsInput, true);
    setDisabled(snapInput, false);
    return;
  }
  setDisabled(distSel, false);
  setDisabled(epsilonInput, false);
  setDisabled(snapInput, false);

  if (distSel.value !== '') {
    probsInput.value = '';
    weightsInput.value = '';
    setDisabled(probsInput, true);
    setDisabled(weightsInput, true);
    return;
  }

  const probsValue = probsInput.value.trim();
  const weightsValue = weightsInput.value.trim();
  if (probsValue !== '') {
    weightsInput.value = '';
    setDisabled(weightsInput, true);
    setDisabled(probsInput, false);
    return;
  }
  if (weightsValue !== '') {
    probsInput.value = '';
    setDisabled(probsInput, true);
    setDisabled(weightsInput, false);
    return;
  }
  setDisabled(probsInput, false);
  setDisabled(weightsInput, false);
}

function formatKeep(value) {
  if (typeof value !== 'number' || !Number.isFinite(value)) return '0';
  return numberFormatter.format(value);
}

async function loadMeta() {
  try {
    const res = await fetch('/dev/meta');
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const dists = Array.isArray(data) ? data : (data.dists || data.summary || []);
    state.meta = { dists };
    distSel.innerHTML = '';
    const adhoc = document.createElement('option');
    adhoc.value = '';
    adhoc.textContent = 'ad-hoc (probs / weights)';
    distSel.appendChild(adhoc);
    state.meta.dists.forEach((d) => {
      const opt = document.createElement('option');
      const id = d.dist_id ?? d.id ?? d.DistID;
      opt.value = id != null ? String(id) : (d.name || '');
      opt.textContent = (d.name || String(opt.value)) + ' (L=' + (d.size ?? '?') + ')';
      opt.dataset.name = d.name || '';
      distSel.appendChild(opt);
    });
    summary.textContent = '';
    rowsBox.style.display = 'none';
    detail.style.display = 'none';
    setInfo('', false);
    syncInputLocks();
  } catch (err) {
    summary.textContent = 'Failed to load meta: ' + err.message;
  }
}

distSel.addEventListener('change', syncInputLocks);

function setInfo(text, isWarn) {
  infoEl.textContent = text;
  if (isWarn) {
    infoEl.classList.add('warn');
  } else {
    infoEl.classList.remove('warn');
  }
}

function setLoading(isLoading) {
  btnCompile.disabled = isLoading;
  btnDecompose.disabled = isLoading;
  if (isLoading) {
    setInfo('Running…', false);
  }
}

function clearSelection() {
  summary.textContent = '';
  rowsBox.style.display = 'none';
  detail.style.display = 'none';
  rowList.innerHTML = '';
  state.rows = [];
}

function renderDetail(index) {
  if (!state.rows || !state.rows[index]) {
    detail.textContent = '';
    detail.style.display = 'none';
    return;
  }
  detail.textContent = JSON.stringify(state.rows[index], null, 2);
  detail.style.display = 'block';

  // highlight selected
  const buttons = rowList.querySelectorAll('.row-item');
  buttons.forEach((btn, idx) => {
    if (idx === index) {
      btn.classList.add('selected');
    } else {
      btn.classList.remove('selected');
    }
  });
}

function parseList(text) {
  return text.split(',').map((s) => s.trim()).filter((s) => s !== '').map(Number);
}

// buildPayload 依照 snap 優先序組 request：
//   - snap 非空 → { url: /v1/..., body: { table_state } }
//   - 否則走 /dev/...，帶 dist_id 或 probs/weights（加上 epsilon override）。
function buildPayload(devPath, v1Path) {
  const snap = snapInput.value.trim();
  if (snap !== '') {
    return { url: v1Path, body: { table_state: { table_b64u: snap } } };
  }
  const body = {};
  if (distSel.value !== '') {
    body.dist_id = distSel.value;
  } else {
    const probs = probsInput.value.trim();
    const weights = weightsInput.value.trim();
    if (probs !== '') {
      body.probs = parseList(probs);
    } else if (weights !== '') {
      body.weights = parseList(weights);
    }
  }
  const eps = epsilonInput.value.trim();
  if (eps !== '') {
    body.epsilon = Number(eps);
  }
  return { url: devPath, body };
}

async function runCompile() {
  setLoading(true);
  clearSelection();
  const { url, body } = buildPayload('/dev/compile', '/v1/compile');
  try {
    const res = await fetch(url, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(body),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();

    const summaryObj = { ...data };
    delete summaryObj.alt;
    delete summaryObj.keep;
    summary.textContent = JSON.stringify(summaryObj, null, 2);

    const alt = Array.isArray(data.alt) ? data.alt : [];
    const keep = Array.isArray(data.keep) ? data.keep : [];
    const unit = Math.pow(2, data.mu || 0);
    const shown = Math.min(alt.length, 4096);
    if (alt.length > 4096) {
      setInfo('Row list is capped at 4,096 entries.', true);
    } else {
      setInfo('', false);
    }
    if (shown > 0) {
      state.rows = [];
      rowList.innerHTML = '';
      for (let idx = 0; idx < shown; idx++) {
        const keepVal = typeof keep[idx] === 'number' ? keep[idx] : 0;
        const full = keepVal === unit;
        state.rows.push({
          index: idx,
          alt: alt[idx],
          keep: keepVal,
          unit: unit,
          keep_fraction: unit > 0 ? keepVal / unit : 0,
        });
        const btn = document.createElement('button');
        btn.type = 'button';
        btn.className = 'row-item';
        const idxSpan = document.createElement('span');
        idxSpan.className = 'row-index';
        idxSpan.textContent = '#' + idx;
        const altSpan = document.createElement('span');
        altSpan.className = 'row-alt';
        altSpan.textContent = 'alt=' + alt[idx];
        const keepSpan = document.createElement('span');
        keepSpan.className = 'row-keep' + (full ? ' full' : '');
        keepSpan.textContent = 'keep=' + formatKeep(keepVal);
        btn.appendChild(idxSpan);
        btn.appendChild(altSpan);
        btn.appendChild(keepSpan);
        btn.title = 'Row ' + idx + ' | alt=' + alt[idx] + ' | keep=' + formatKeep(keepVal);
        btn.addEventListener('click', () => {
          renderDetail(idx);
        });
        rowList.appendChild(btn);
      }
      rowsBox.style.display = 'block';
      renderDetail(0);
    } else {
      rowsBox.style.display = 'none';
      detail.style.display = 'none';
      state.rows = [];
    }
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

async function runDecompose() {
  setLoading(true);
  clearSelection();
  const { url, body } = buildPayload('/dev/decompose', '/v1/decompose');
  try {
    const res = await fetch(url, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(body),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const ops = Array.isArray(data.ops) ? data.ops : [];
    if (ops.length > 0 && typeof ops[0] === 'string') {
      summary.textContent = ops.join('\n');
    } else {
      summary.textContent = JSON.stringify(data, null, 2);
    }
    setInfo('', false);
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

btnCompile.addEventListener('click', runCompile);
btnDecompose.addEventListener('click', runDecompose);
btnClear.addEventListener('click', () => {
  clearSelection();
  setInfo('', false);
});
snapInput.addEventListener('input', syncInputLocks);
probsInput.addEventListener('input', syncInputLocks);
weightsInput.addEventListener('input', syncInputLocks);

syncInputLocks();
loadMeta();
</script>
</body>
</html>`

// devPage 回傳內嵌 HTML（single page）。這裡不做 templating，降低 dev tool 維護成本。
func devPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(devPageHTML))
}

// favicon 提供 Dev Panel 的 favicon.svg。
func favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(faviconSVG))
}

// devMeta 回傳 Catalog summary（JSON）。
//
// 前端依賴欄位：
//   - dist_id / id / DistID
//   - name
//   - size
func devMeta(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lab, ok := getQprep(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("qprep is required"))
			return
		}
		sum, err := lab.Summary()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sum)
	}
}

// devCompile 執行「即時」編譯。
//
// 流程（high level）：
//  1. decode 精簡版 CompileRequest（JSON body；不含 table_state）
//  2. resolve distribution（dist_id/name/ad-hoc）→ spec.DistSetting
//  3. 編譯 + 品質評估，包進 CompileResult envelope
//  4. 以 dto.CompileResult 回傳（含 alt/keep 與可貼回的快照字串）
//
// Snap precedence：快照路徑不經過這裡；前端會直接改打 /v1/compile。
func devCompile(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lab, ok := getQprep(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("qprep is required"))
			return
		}
		req, err := buf.DecodeCompileRequest(r)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("invalid request:"+err.Error()))
			return
		}
		ds, err := resolveSetting(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}

		cr := buf.NewCompileResult(ds.DistID, ds.Name)
		cr.AppendSetting(ds)
		started := time.Now()
		smp, rep, err := qprep.CompileQuality(ds)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		rep.Done()
		cr.AppendSampler(smp)
		cr.AppendReport(rep)
		cr.BuildNs = time.Since(started).Nanoseconds()
		cr.End()

		out, err := dto.NewCompileResultDTO(cr)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// devDecompose 編譯後輸出五步分解的文字行。
//
// 和 /v1/decompose 的差異：
//   - /v1 回傳結構化的 Operation DTO（給程式消費）。
//   - 這裡回傳 op.String() 的文字行（給人眼快速掃過），不帶表格內容。
func devDecompose(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 內部結構 不影響外部 也不被外部使用
		type devDecomposeReport struct {
			DistID spec.DistID `json:"dist_id"`
			Name   string      `json:"name"`
			Size   int         `json:"size"`
			Mu     int         `json:"mu"`
			Ops    []string    `json:"ops"`
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lab, ok := getQprep(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("qprep is required"))
			return
		}
		req, err := buf.DecodeCompileRequest(r)
		if err != nil {
			httperr.Errs(w, errs.NewWarn("invalid request:"+err.Error()))
			return
		}
		ds, err := resolveSetting(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		smp, err := qprep.Compile(ds)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		ops, err := smp.Decompose(smp.DefaultRegisters())
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		lines := make([]string, len(ops))
		for i, op := range ops {
			lines[i] = op.String()
		}
		report := devDecomposeReport{
			DistID: ds.DistID,
			Name:   ds.Name,
			Size:   smp.Size(),
			Mu:     smp.Mu(),
			Ops:    lines,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}

// getQprep 從 server config 取得已組裝的 Qprep instance。
// Dev routes 不負責組裝（assembler），只負責使用（runtime entry）。
func getQprep(cfg *svrcfg.SvrCfg) (*qprep.Qprep, bool) {
	if cfg == nil || cfg.Qprep == nil {
		return nil, false
	}
	return cfg.Qprep, true
}

// resolveSetting 解析使用者指定的分佈：
//   - 若 dist_id 非空：以 dist_id 精準匹配（fast path）。
//   - 否則若 name 非空：做 case-insensitive name 匹配。
//   - 否則走 ad-hoc：probs 與 weights 擇一。
//
// epsilon override 以複本套用，目錄內的設定不會被改動。
func resolveSetting(lab *qprep.Qprep, req *buf.CompileRequest) (*spec.DistSetting, error) {
	if req.DistID != "" {
		ds, err := lab.SettingById(spec.DistID(req.DistID))
		if err != nil {
			return nil, err
		}
		return applyEpsilon(ds, req.Epsilon), nil
	}
	name := strings.TrimSpace(req.Name)
	if name != "" {
		sums, err := lab.Summary()
		if err != nil {
			return nil, err
		}
		for _, s := range sums {
			if strings.EqualFold(s.Name, name) {
				ds, err := lab.SettingById(s.DistID)
				if err != nil {
					return nil, err
				}
				return applyEpsilon(ds, req.Epsilon), nil
			}
		}
		return nil, errs.NewWarn("name not found")
	}

	hasProbs := len(req.Probs) > 0
	hasWeights := len(req.Weights) > 0
	if !hasProbs && !hasWeights {
		return nil, errs.NewWarn("dist_id, name or an ad-hoc distribution is required")
	}
	if hasProbs && hasWeights {
		return nil, errs.NewWarn("probs and weights are mutually exclusive")
	}
	eps := alias.DefaultEpsilon
	if req.Epsilon != nil {
		eps = *req.Epsilon
	}
	return &spec.DistSetting{
		DistID:  "ad-hoc",
		Name:    "ad-hoc",
		Probs:   req.Probs,
		Weights: req.Weights,
		Epsilon: eps,
	}, nil
}

// applyEpsilon 以複本套用 epsilon override；nil 表示沿用目錄設定。
func applyEpsilon(ds *spec.DistSetting, eps *float64) *spec.DistSetting {
	if eps == nil {
		return ds
	}
	eff := *ds
	eff.Epsilon = *eps
	return &eff
}

//go:embed favicon.svg
var faviconSVG string

// keep embed imported even if only used for directives
var _ embed.FS
