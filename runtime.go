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

package qprep

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/sdk/qgate"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
	"github.com/zintix-labs/qprep/tabfmt"
)

// compiledDist 單一分佈的常駐成品：凍結的 Sampler、結算後的品質報告、可序列化快照。
type compiledDist struct {
	smp     *prep.Sampler
	rep     *stats.QualityReport
	dump    *tabfmt.TableDump
	lookups atomic.Int64
}

// PrepRuntime 把整個目錄的編譯成品常駐在記憶體，對外提供查表服務。
//
// Sampler 是凍結的值物件，天生可以被任意多個讀取端共用，
// 所以這裡不需要借還機制：build 階段整批編好，serve 階段只剩唯讀查找。
type PrepRuntime struct {
	// build-time 來源（只讀引用）
	lab *Qprep // 方便取 catalog 與共用一些 helper

	// data-plane：關鍵主表（每個分佈一份成品）
	tables map[spec.DistID]*compiledDist
	ids    []spec.DistID // 固定順序，用於觀測/列舉（來自 cat.IDs()）

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	misses atomic.Int64 // 查無此分佈的次數
}

// lookup 是所有讀取入口的共同路徑：檢查生命週期、找成品、記數。
func (rt *PrepRuntime) lookup(ctx context.Context, id spec.DistID) (*compiledDist, error) {
	select {
	case <-ctx.Done():
		// 如果通知取消
		return nil, errs.NewWarn("lookup canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		// done is the source of truth; keep a fast boolean for cheap reads/telemetry.
		rt.closed.Store(true)
		return nil, errs.NewFatal("prep runtime closed: " + rt.ClosedReason())
	default:
	}

	cd, ok := rt.tables[id]
	if !ok {
		rt.misses.Add(1)
		return nil, errs.NewWarn("dist id not found")
	}
	cd.lookups.Add(1)
	return cd, nil
}

// Sampler 回傳指定分佈的凍結編譯成品。
func (rt *PrepRuntime) Sampler(ctx context.Context, id spec.DistID) (*prep.Sampler, error) {
	cd, err := rt.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return cd.smp, nil
}

// Quality 回傳指定分佈的品質報告（build 階段已結算）。
func (rt *PrepRuntime) Quality(ctx context.Context, id spec.DistID) (*stats.QualityReport, error) {
	cd, err := rt.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return cd.rep, nil
}

// Dump 回傳指定分佈的可序列化快照（tabfmt 格式）。
func (rt *PrepRuntime) Dump(ctx context.Context, id spec.DistID) (*tabfmt.TableDump, error) {
	cd, err := rt.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return cd.dump, nil
}

// Decompose 以預設暫存器佈局回傳指定分佈的可逆操作序列。
func (rt *PrepRuntime) Decompose(ctx context.Context, id spec.DistID) ([]qgate.Operation, error) {
	cd, err := rt.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return cd.smp.Decompose(cd.smp.DefaultRegisters())
}

func (rt *PrepRuntime) IDs() []spec.DistID {
	if len(rt.ids) == 0 {
		return nil
	}
	return append([]spec.DistID(nil), rt.ids...)
}

func (rt *PrepRuntime) Len() int {
	return len(rt.ids)
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *PrepRuntime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *PrepRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *PrepRuntime) Closed() bool {
	return rt.closed.Load()
}

func (rt *PrepRuntime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// DistMetrics 單一分佈的觀測快照。
type DistMetrics struct {
	DistID    spec.DistID `json:"dist_id"`
	Name      string      `json:"name"`
	Size      int         `json:"size"`
	Mu        int         `json:"mu"`
	TotalBits int         `json:"total_bits"`
	QROMBits  int         `json:"qrom_bits"`
	Lookups   int64       `json:"lookups"`
}

// PrepRuntimeMetrics 是「拉取式（pull）」觀測快照。
//
// 設計原則：
//   - 不綁任何 metrics/telemetry SDK（Prometheus / OpenTelemetry 等），由上層自己決定如何輸出。
//   - 欄位值以讀取當下為主；Lookups/Misses 為累計計數，高併發下讀到的只是近似的同一瞬間。
type PrepRuntimeMetrics struct {
	Tables        int           `json:"tables"`          // 常駐成品數
	TotalRows     int           `json:"total_rows"`      // 累計 QROM 資料列數
	TotalQROMBits int           `json:"total_qrom_bits"` // 累計 QROM 資料位元數
	Lookups       int64         `json:"lookups"`         // 累計查找命中
	Misses        int64         `json:"misses"`          // 累計查無此分佈
	Closed        bool          `json:"closed"`          // 是否已關閉
	CloseReason   string        `json:"close_reason"`    // 關閉原因
	Dists         []DistMetrics `json:"dists"`           // 依 ID 排序的單分佈快照
}

// Metrics 回傳觀測快照；上層可用於 log、/metrics、或餵給 Prometheus/OTEL exporter。
func (rt *PrepRuntime) Metrics() PrepRuntimeMetrics {
	m := PrepRuntimeMetrics{
		Tables:      len(rt.ids),
		Closed:      rt.Closed(),
		CloseReason: rt.ClosedReason(),
		Misses:      rt.misses.Load(),
		Dists:       make([]DistMetrics, 0, len(rt.ids)),
	}
	for _, id := range rt.ids {
		cd, ok := rt.tables[id]
		if !ok {
			continue
		}
		n := cd.lookups.Load()
		dm := DistMetrics{
			DistID:    id,
			Name:      cd.dump.Name,
			Size:      cd.smp.Size(),
			Mu:        cd.smp.Mu(),
			TotalBits: cd.smp.TotalBits(),
			QROMBits:  cd.smp.Size() * (cd.smp.AlternatesBitsize() + cd.smp.KeepBitsize()),
			Lookups:   n,
		}
		m.TotalRows += dm.Size
		m.TotalQROMBits += dm.QROMBits
		m.Lookups += n
		m.Dists = append(m.Dists, dm)
	}
	return m
}
