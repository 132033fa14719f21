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

package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
	"github.com/zintix-labs/qprep/tabfmt"
)

// CompileRecorder 編譯紀錄員
//
// CompileRecorder 負責紀錄整批編譯的成敗，並透過Done輸出整批品質報告。
// 平行編譯時每個worker各拿一個recorder，收工後用MergeCompileRecorder合併。
type CompileRecorder struct {
	BatchName string
	MaxSize   int // 單表結果數上限，0 表示不設限
	Build     *BuildRecord
	Table     *TableRecord
	Fail      *FailRecord
}

// BuildRecord 編譯量紀錄
type BuildRecord struct {
	Compiled      int
	Failed        int
	TotalRows     int // 累計 QROM 資料列數
	TotalQROMBits int // 累計 QROM 資料位元數
	PeakMu        int
	PeakSize      int
	PeakTotalBits int
}

// TableRecord 成品表彙整
//
// 紀錄時保留不可變快照
type TableRecord struct {
	ids  []spec.DistID
	byID map[spec.DistID]*TableItem
}

// TableItem 單一分布的編譯成品
type TableItem struct {
	Dump   *tabfmt.TableDump
	Report *stats.QualityReport
}

// FailRecord 失敗彙整
type FailRecord struct {
	Items []*FailItem
}

// FailItem 單筆失敗的身分與分級
type FailItem struct {
	DistID spec.DistID
	Name   string
	Level  errs.ErrLevel
	Msg    string
}

func NewCompileRecorder(name string, maxSize int) (*CompileRecorder, error) {
	s := new(CompileRecorder)

	name = strings.TrimSpace(name)
	if name == "" {
		return s, errs.NewFatal(fmt.Sprintf("batch name err %q", name))
	}

	if maxSize < 0 {
		return s, errs.NewFatal(fmt.Sprintf("max size err %d", maxSize))
	}
	// 通過valid
	s.BatchName = name
	s.MaxSize = maxSize
	s.Build = new(BuildRecord)
	s.Table = newTableRecord()
	s.Fail = new(FailRecord)

	return s, nil
}

func MergeCompileRecorder(r []*CompileRecorder) (*CompileRecorder, error) {
	if len(r) == 0 {
		return new(CompileRecorder), errs.NewFatal("merge compile record err : empty input")
	}
	r0 := r[0]
	s, err := NewCompileRecorder(r0.BatchName, r0.MaxSize)
	if err != nil {
		return s, err
	}
	for _, v := range r {
		if v.BatchName != r0.BatchName {
			return s, errs.NewFatal("merge compile record err : different batch name")
		}
		if v.MaxSize != r0.MaxSize {
			return s, errs.NewFatal("merge compile record err : different max size")
		}
		s.Build.Compiled += v.Build.Compiled
		s.Build.Failed += v.Build.Failed
		s.Build.TotalRows += v.Build.TotalRows
		s.Build.TotalQROMBits += v.Build.TotalQROMBits
		if v.Build.PeakMu > s.Build.PeakMu {
			s.Build.PeakMu = v.Build.PeakMu
		}
		if v.Build.PeakSize > s.Build.PeakSize {
			s.Build.PeakSize = v.Build.PeakSize
		}
		if v.Build.PeakTotalBits > s.Build.PeakTotalBits {
			s.Build.PeakTotalBits = v.Build.PeakTotalBits
		}

		// 整合Table
		// 跨worker撞到同一個DistID代表分工錯了，不能默默蓋掉成品
		for _, id := range v.Table.ids {
			if _, ok := s.Table.byID[id]; ok {
				return s, errs.NewFatal(fmt.Sprintf("merge compile record err : duplicate dist id %s", id))
			}
			s.Table.add(v.Table.byID[id])
		}

		// 整合Fail
		s.Fail.Items = append(s.Fail.Items, v.Fail.Items...)
	}
	return s, nil
}

// Record 紀錄一筆編譯成功的分布：建立成品快照並評估品質
func (s *CompileRecorder) Record(ds *spec.DistSetting, smp *prep.Sampler) error {
	if ds == nil {
		return errs.NewFatal("record: dist setting is nil")
	}
	if smp == nil {
		return errs.NewFatal("record: sampler is nil")
	}
	if s.MaxSize > 0 && smp.Size() > s.MaxSize {
		return errs.Warnf("record: table size %d exceeds batch cap %d", smp.Size(), s.MaxSize)
	}
	if _, ok := s.Table.byID[ds.DistID]; ok {
		return errs.Warnf("record: dist id %s already recorded", ds.DistID)
	}

	rep, err := stats.Evaluate(ds, smp)
	if err != nil {
		return errs.Wrap(err, "record: evaluate quality")
	}

	s.Table.add(&TableItem{
		Dump:   tabfmt.FromSampler(ds.DistID, ds.Name, ds.Epsilon, smp),
		Report: rep,
	})
	s.recordBuild(smp)
	return nil
}

// RecordFail 紀錄一筆編譯失敗的分布，分級沿用 errs.LevelOf。
// err 為 nil 時不做事。
func (s *CompileRecorder) RecordFail(id spec.DistID, name string, err error) {
	if err == nil {
		return
	}
	s.Build.Failed++
	s.Fail.Items = append(s.Fail.Items, &FailItem{
		DistID: id,
		Name:   name,
		Level:  errs.LevelOf(err),
		Msg:    err.Error(),
	})
}

// FailErr 把失敗紀錄彙整成單一 error；沒有任何失敗時回傳 nil。
// 彙整後的分級取所有失敗中最嚴重者。
func (s *CompileRecorder) FailErr() error {
	if len(s.Fail.Items) == 0 {
		return nil
	}
	list := &errs.List{}
	for _, it := range s.Fail.Items {
		list.Add(string(it.DistID), errs.New(it.Level, it.Msg))
	}
	return list.Err()
}

// Done 結算所有品質報告並輸出整批評估
func (s *CompileRecorder) Done() *stats.EstimatorBatch {
	reps := s.Reports()
	for _, q := range reps {
		q.Done()
	}
	return stats.EstimatorBatchQuality(reps)
}

// SaveAll 把每張成品表各寫成一個 <dist_id>.qpt 檔
func (s *CompileRecorder) SaveAll(outDir string) error {
	if strings.TrimSpace(outDir) == "" {
		return errs.Warnf("save: output dir is empty")
	}
	if s.Len() == 0 {
		return errs.Warnf("save: nothing recorded")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errs.Wrap(err, "save: mkdir output dir")
	}

	for _, id := range s.IDs() {
		if !safeFileID(string(id)) {
			return errs.Warnf("save: dist id %q is not a safe file name", id)
		}
		it := s.Table.byID[id]

		path := filepath.Join(outDir, string(id)+".qpt")
		f, err := os.Create(path)
		if err != nil {
			return errs.Wrap(err, "save: create table file")
		}
		if err := tabfmt.WriteTable(f, it.Dump); err != nil {
			_ = f.Close()
			return errs.Wrap(err, "save: write table file")
		}
		if err := f.Close(); err != nil {
			return errs.Wrap(err, "save: close table file")
		}

		// 寫完立刻讀回對指紋，壞檔要在編譯階段就爆出來
		b, err := os.ReadFile(path)
		if err != nil {
			return errs.Wrap(err, "save: read back table file")
		}
		back, err := tabfmt.DecodeTable(b, 0)
		if err != nil {
			return errs.Wrap(err, "save: verify table frame")
		}
		if back.Fingerprint != it.Dump.Fingerprint {
			return errs.Fatalf("save: fingerprint mismatch after write: %s", id)
		}
	}
	return nil
}

// Len 回傳已紀錄的成品表數
func (s *CompileRecorder) Len() int { return len(s.Table.ids) }

// IDs 依字典序回傳已紀錄的分布編號
func (s *CompileRecorder) IDs() []spec.DistID {
	out := make([]spec.DistID, len(s.Table.ids))
	copy(out, s.Table.ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Item 以分布編號取回單筆成品
func (s *CompileRecorder) Item(id spec.DistID) (*TableItem, bool) {
	it, ok := s.Table.byID[id]
	return it, ok
}

// Reports 依字典序回傳所有品質報告
func (s *CompileRecorder) Reports() []*stats.QualityReport {
	ids := s.IDs()
	out := make([]*stats.QualityReport, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Table.byID[id].Report)
	}
	return out
}

// Tables 依字典序回傳所有成品快照
func (s *CompileRecorder) Tables() []*tabfmt.TableDump {
	ids := s.IDs()
	out := make([]*tabfmt.TableDump, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Table.byID[id].Dump)
	}
	return out
}

func (s *CompileRecorder) recordBuild(smp *prep.Sampler) {
	b := s.Build
	rows := smp.Size()

	b.Compiled++
	b.TotalRows += rows
	b.TotalQROMBits += rows * (smp.AlternatesBitsize() + smp.KeepBitsize())

	// 更新峰值
	if smp.Mu() > b.PeakMu {
		b.PeakMu = smp.Mu()
	}
	if rows > b.PeakSize {
		b.PeakSize = rows
	}
	if smp.TotalBits() > b.PeakTotalBits {
		b.PeakTotalBits = smp.TotalBits()
	}
}

func (t *TableRecord) add(it *TableItem) {
	t.ids = append(t.ids, it.Dump.DistID)
	t.byID[it.Dump.DistID] = it
}

// safeFileID 檔名白名單：字母、數字、-、_、.，且不可以 . 開頭。
// dist_id 來自設定檔內容，不信任它能直接當檔名。
func safeFileID(id string) bool {
	if id == "" || id[0] == '.' {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

func newTableRecord() *TableRecord {
	t := new(TableRecord)
	t.byID = make(map[spec.DistID]*TableItem)
	return t
}
