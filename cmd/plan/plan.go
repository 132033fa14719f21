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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/zintix-labs/qprep/plan"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg = struct {
	l          int
	epsilon    float64
	lo         float64
	hi         float64
	n          int
	maxBits    int
	maxToffoli int
	maxQROM    int
	asJSON     bool
}{}

// 不建表的資源規劃器：單點估算或對數等距掃描，帶預算時再挑可行的最嚴 epsilon。
func main() {
	flag.IntVar(&cfg.l, "l", 0, "number of outcomes (required)")
	flag.Float64Var(&cfg.epsilon, "epsilon", 0, "single-point epsilon")
	flag.Float64Var(&cfg.lo, "lo", 0, "sweep lower epsilon")
	flag.Float64Var(&cfg.hi, "hi", 0, "sweep upper epsilon")
	flag.IntVar(&cfg.n, "n", 7, "sweep grid points")
	flag.IntVar(&cfg.maxBits, "max-bits", 0, "budget: total qubits")
	flag.IntVar(&cfg.maxToffoli, "max-toffoli", 0, "budget: Toffoli count")
	flag.IntVar(&cfg.maxQROM, "max-qrom", 0, "budget: QROM bits")
	flag.BoolVar(&cfg.asJSON, "json", false, "emit JSON instead of a table")
	flag.Parse()

	if cfg.l < 1 {
		log.Fatal("value err : -l is required and must > 0")
	}

	// 單點模式
	if cfg.epsilon > 0 {
		est, err := plan.For(cfg.l, cfg.epsilon)
		if err != nil {
			log.Fatal(err)
		}
		emit(est, plan.SweepResult{est}, nil)
		return
	}

	// 掃描模式
	if cfg.lo <= 0 || cfg.hi <= 0 {
		log.Fatal("value err : give -epsilon, or a -lo/-hi sweep range")
	}
	grid, err := plan.Grid(cfg.lo, cfg.hi, cfg.n)
	if err != nil {
		log.Fatal(err)
	}
	sr, err := plan.Sweep(cfg.l, grid)
	if err != nil {
		log.Fatal(err)
	}

	var picked *plan.Estimate
	budget := plan.Budget{MaxTotalBits: cfg.maxBits, MaxToffoli: cfg.maxToffoli, MaxQROMBits: cfg.maxQROM}
	if cfg.maxBits > 0 || cfg.maxToffoli > 0 || cfg.maxQROM > 0 {
		picked, err = plan.PickEpsilon(cfg.l, grid, budget)
		if err != nil {
			log.Fatal(err)
		}
	}
	emit(nil, sr, picked)
}

func emit(single *plan.Estimate, sr plan.SweepResult, picked *plan.Estimate) {
	if cfg.asJSON {
		out := struct {
			Sweep  plan.SweepResult `json:"sweep"`
			Picked *plan.Estimate   `json:"picked,omitempty"`
		}{Sweep: sr, Picked: picked}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatal(err)
		}
		return
	}

	p := message.NewPrinter(language.English)
	p.Printf("%-12s %4s %6s %6s %10s %9s\n", "EPSILON", "MU", "SEL", "TOTAL", "QROM_BITS", "TOFFOLI")
	for _, e := range sr {
		p.Printf("%-12.3e %4d %6d %6d %10d %9d\n",
			e.Epsilon, e.Mu, e.SelectionBits, e.TotalBits, e.QROMBits, e.Toffoli.Total)
	}
	if single != nil {
		p.Printf("unit prob: %.3e (per-outcome discretization bound)\n", single.UnitProb)
	}
	if picked != nil {
		green := "\033[1;32m"
		reset := "\033[0m"
		fmt.Printf("%spicked epsilon %.3e: %d qubits, %d Toffoli, %d QROM bits%s\n",
			green, picked.Epsilon, picked.TotalBits, picked.Toffoli.Total, picked.QROMBits, reset)
	}
}
