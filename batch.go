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
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/qprep/catalog"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/recorder"
	"github.com/zintix-labs/qprep/sdk/buf"
	"github.com/zintix-labs/qprep/spec"
)

const capPrepare int = 100

// BatchCompiler 用於整批編譯目錄內的分佈，可開多個 worker 平行建表並合併紀錄。
type BatchCompiler struct {
	BatchName string                      // 批次名稱（紀錄識別用）
	lab       *Qprep                      // 目錄與設定檔來源
	ids       []spec.DistID               // 固定順序（來自 cat.IDs()）
	maxSize   int                         // 單表結果數上限，0 表示不設限
	rBuf      []*recorder.CompileRecorder // 併發編譯紀錄員
	eBuf      []*buf.CompileResult        // 併發結果信封（Reset 重用）
}

func newBatchCompiler(lab *Qprep, name string, maxSize int) (*BatchCompiler, error) {
	ids := lab.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no distributions registered")
	}
	// 名稱與上限的合法性交給 recorder 驗證，這裡先建一份確定參數可用
	r, err := recorder.NewCompileRecorder(name, maxSize)
	if err != nil {
		return nil, err
	}
	b := &BatchCompiler{
		BatchName: r.BatchName,
		lab:       lab,
		ids:       ids,
		maxSize:   maxSize,
		rBuf:      make([]*recorder.CompileRecorder, 1, capPrepare),
		eBuf:      make([]*buf.CompileResult, 0, capPrepare),
	}
	b.rBuf[0] = r
	return b, nil
}

// Run 以 worker pool 整批編譯所有已註冊的分佈，合併各 worker 的紀錄後回傳。
//
// workers <= 0 時使用 GOMAXPROCS；worker 數不會超過分佈數。
// 單一分佈的失敗（設定檔壞掉、向量不合法）不會中斷整批：
// 會連同卡住的階段一起記進 Fail 紀錄，整批結束後由呼叫端決定如何處置。
func (b *BatchCompiler) Run(ctx context.Context, workers int, showpb bool) (*recorder.CompileRecorder, time.Duration, error) {
	defer b.reset()
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(b.ids) {
		workers = len(b.ids)
	}

	for len(b.rBuf) < workers {
		r, err := recorder.NewCompileRecorder(b.BatchName, b.maxSize)
		if err != nil {
			return nil, 0, err
		}
		b.rBuf = append(b.rBuf, r)
	}
	for len(b.eBuf) < workers {
		b.eBuf = append(b.eBuf, buf.NewCompileResult("", ""))
	}

	// 作一個2048大小的緩衝channel 使worker依序處理
	jobs := make(chan catalog.Entry, 2048)

	wg := new(sync.WaitGroup)
	wg.Add(workers)

	bar := pb.StartNew(len(b.ids))
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	// 併發執行
	for w := 0; w < workers; w++ {
		go compile(ctx, wg, b.lab, jobs, b.rBuf[w], b.eBuf[w], bar)
	}
	// 此時併發已經就緒，但由於所有workers都無法從jobs當中取出j(還沒塞進去) 所以不會結束

	// 塞進分佈，開始編譯
	for _, id := range b.ids {
		if ent, ok := b.lab.cat.GetByID(id); ok {
			jobs <- ent
		}
	}
	close(jobs) // 分佈送完關閉通道 通知所有workers不會再有新資料
	wg.Wait()   // 等待workers都執行完任務
	used := time.Since(bar.StartTime())
	bar.Finish()

	rec, err := recorder.MergeCompileRecorder(b.rBuf[:workers])
	if err != nil {
		return nil, 0, err
	}
	if cerr := ctx.Err(); cerr != nil {
		return rec, used, errs.NewWarn("batch canceled/timeout: " + cerr.Error())
	}
	return rec, used, nil
}

// compile 單一 worker 的編譯迴圈：從 jobs 取分佈、跑完管線、記錄成敗。
// ctx 取消後不再建表，剩餘工作直接記為取消失敗（批次仍會完整收尾）。
func compile(ctx context.Context, wg *sync.WaitGroup, lab *Qprep, jobs chan catalog.Entry, rec *recorder.CompileRecorder, res *buf.CompileResult, bar *pb.ProgressBar) {
	defer wg.Done()
	for e := range jobs { // e := <- jobs
		select {
		case <-ctx.Done():
			rec.RecordFail(e.DistID, e.Name, errs.NewWarn("compile canceled/timeout: "+ctx.Err().Error()))
			bar.Increment()
			continue
		default:
		}
		res.Reset(e.DistID, e.Name)
		compileOne(lab, e, rec, res)
		bar.Increment()
	}
}

// compileOne 走完單一分佈的管線：載入設定、建表、評估品質、收進紀錄。
func compileOne(lab *Qprep, e catalog.Entry, rec *recorder.CompileRecorder, res *buf.CompileResult) {
	ds, err := lab.cat.DistSettingById(e.DistID)
	if err != nil {
		failOne(rec, res, err)
		return
	}
	res.AppendSetting(ds)

	t0 := time.Now()
	smp, err := Compile(ds)
	res.BuildNs = time.Since(t0).Nanoseconds()
	if err != nil {
		failOne(rec, res, err)
		return
	}
	res.AppendSampler(smp)

	if err := rec.Record(ds, smp); err != nil {
		failOne(rec, res, err)
		return
	}
	if it, ok := rec.Item(ds.DistID); ok {
		res.AppendReport(it.Report)
	}
	res.End()
}

// failOne 把失敗連同卡住的階段一起記錄，整批報告才能指出死在哪一步。
func failOne(rec *recorder.CompileRecorder, res *buf.CompileResult, err error) {
	res.Fail(err)
	rec.RecordFail(res.DistID, res.DistName, errs.WrapWithExtra(err, "compile pipeline stopped", "stage="+res.Stage.String()))
}

func (b *BatchCompiler) reset() {
	b.rBuf = b.rBuf[:0]
}

// BatchOption 控制 CompileCatalog 的批次行為。
type BatchOption struct {
	BatchName    string // 紀錄識別名稱，留空時用 "catalog"
	Workers      int    // worker 數量，<= 0 時用 GOMAXPROCS
	MaxSize      int    // 單表結果數上限，0 表示不設限
	ShowProgress bool   // 顯示進度條
	OutDir       string // 留空不落地；非空時整批寫成 <dist_id>.qpt
}

// CompileCatalog 一次編譯 lab 目錄內的全部分佈。
//
// 這是批次工具的糖衣入口：建 BatchCompiler、跑完、（可選）落地成品。
// 個別分佈的失敗收在回傳 recorder 的 Fail 紀錄；用 FailErr 轉成單一 error。
func CompileCatalog(ctx context.Context, lab *Qprep, opt BatchOption) (*recorder.CompileRecorder, time.Duration, error) {
	if lab == nil {
		return nil, 0, errs.NewFatal("qprep instance required")
	}
	name := strings.TrimSpace(opt.BatchName)
	if name == "" {
		name = "catalog"
	}
	bc, err := lab.NewBatchCompiler(name, opt.MaxSize)
	if err != nil {
		return nil, 0, err
	}
	rec, used, err := bc.Run(ctx, opt.Workers, opt.ShowProgress)
	if err != nil {
		return rec, used, err
	}
	if opt.OutDir != "" {
		if err := rec.SaveAll(opt.OutDir); err != nil {
			return rec, used, err
		}
	}
	return rec, used, nil
}
