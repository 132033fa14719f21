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

package demo

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/zintix-labs/qprep"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
)

// WalkCompile 編譯一個 demo 分佈，在終端攤開品質報告與五步分解。
//
// 給第一次接觸的人跑的導覽：一筆設定進去，看得到佈局、誤差與操作序列。
func WalkCompile(id spec.DistID) error {
	lab, err := NewQprep()
	if err != nil {
		return err
	}
	started := time.Now()
	desc, err := lab.DescribeById(id)
	if err != nil {
		return err
	}
	desc.Quality.StdOut(time.Since(started))
	for i, line := range desc.Ops {
		fmt.Printf("%d. %s\n", i+1, line)
	}
	return nil
}

// WalkCatalog 批次編譯整個 demo 目錄，輸出整批評估後攤開第一個分佈的分解。
func WalkCatalog(ctx context.Context) error {
	lab, err := NewQprep()
	if err != nil {
		return err
	}
	rec, used, err := qprep.CompileCatalog(ctx, lab, qprep.BatchOption{ShowProgress: true})
	if err != nil {
		return err
	}

	est := rec.Done()
	render := &stats.YAMLEstimatorRender{}
	if err := render.Write(os.Stdout, est); err != nil {
		return err
	}
	fmt.Printf("tables: %d, used: %v\n", rec.Len(), used)

	if ids := lab.IDs(); len(ids) > 0 {
		desc, err := lab.DescribeById(ids[0])
		if err != nil {
			return err
		}
		fmt.Printf("decompose %s:\n", desc.DistID)
		for i, line := range desc.Ops {
			fmt.Printf("  %d. %s\n", i+1, line)
		}
	}
	return rec.FailErr()
}
