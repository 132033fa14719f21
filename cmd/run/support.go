package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/zintix-labs/qprep"
	"github.com/zintix-labs/qprep/demo"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/gen"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	worker    int
	maxSize   int
	outDir    string
	cfgDir    string
	synth     int
	synthSize int
	pprofmode string
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.IntVar(&cfg.worker, "worker", 0, "number of workers (<=0 uses GOMAXPROCS)")
	flag.IntVar(&cfg.maxSize, "max", 0, "max outcomes per table (0 = unlimited)")
	flag.StringVar(&cfg.outDir, "out", "", "write every table as <dist_id>.qpt under this dir")
	flag.StringVar(&cfg.cfgDir, "dir", "", "compile configs from this dir instead of the embedded demo catalog")
	flag.IntVar(&cfg.synth, "synth", 0, "compile this many synthetic tables instead of a catalog (profiling load)")
	flag.IntVar(&cfg.synthSize, "l", 256, "outcomes per synthetic table")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// worker 未指定 -> 跟著機器核心數
	if cfg.worker < 1 {
		cfg.worker = runtime.GOMAXPROCS(0)
	}
}

// 這裡解析並分支要執行的批次
func executeBatch() {
	cfg.valid() // 基本檢查

	if cfg.synth > 0 {
		executeSynth()
		return
	}

	lab, err := newLab()
	if err != nil {
		log.Fatal(err)
	}
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	p.Printf("%s[BATCH:catalog] [WORKERS:%d] [DISTS:%d]%s\n", green, cfg.worker, len(lab.IDs()), reset)

	rec, used, err := qprep.CompileCatalog(context.Background(), lab, qprep.BatchOption{
		Workers:      cfg.worker,
		MaxSize:      cfg.maxSize,
		ShowProgress: true,
		OutDir:       cfg.outDir,
	})
	if err != nil {
		log.Fatal(err)
	}

	est := rec.Done()
	render := &stats.YAMLEstimatorRender{}
	if err := render.Write(os.Stdout, est); err != nil {
		log.Fatal(err)
	}
	p.Printf("tables: %d, used: %v\n", rec.Len(), used)

	// 個別分佈的失敗彙總成單一 error 決定 exit code
	if ferr := rec.FailErr(); ferr != nil {
		log.Println(ferr)
		os.Exit(exitCode(ferr))
	}
}

// executeSynth 以固定家族的合成分佈灌編譯管線，給 pprof/PGO 一個可重現的工作負載。
func executeSynth() {
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	p.Printf("%s[BATCH:synth] [TABLES:%d] [L:%d]%s\n", green, cfg.synth, cfg.synthSize, reset)

	started := time.Now()
	for i := 0; i < cfg.synth; i++ {
		probs, err := synthProbs(i, cfg.synthSize)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := prep.FromLCUProbsDefault(probs); err != nil {
			log.Fatal(err)
		}
	}
	used := time.Since(started)
	p.Printf("tables: %d, used: %v (%.0f tables/sec)\n", cfg.synth, used, float64(cfg.synth)/used.Seconds())
}

// synthProbs 在四個家族間輪轉，參數隨序號微調避免每輪走完全相同的路徑。
func synthProbs(i, l int) ([]float64, error) {
	switch i % 4 {
	case 0:
		return gen.Zipf(l, 1.05+0.01*float64(i%16))
	case 1:
		return gen.Binomial(l-1, 0.2+0.02*float64(i%16))
	case 2:
		return gen.Poisson(l, float64(l)/4+float64(i%16))
	default:
		return gen.Uniform(l)
	}
}

func newLab() (*qprep.Qprep, error) {
	if cfg.cfgDir != "" {
		return qprep.NewAuto(qprep.Configs(os.DirFS(cfg.cfgDir)))
	}
	return demo.NewQprep()
}

func exitCode(err error) int {
	var e *errs.E
	if errors.As(err, &e) && e.ErrLv == errs.Fatal {
		return 2
	}
	return 1
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	// 工作協程檢查(併發數)
	if cfg.worker > 256 {
		p.Printf("too many workers: %d resized to 256\n", cfg.worker)
		cfg.worker = 256
	}

	// 單表上限檢查
	if cfg.maxSize < 0 {
		log.Fatal("value err : max must >= 0")
	}

	// 合成模式的表大小檢查
	if cfg.synth > 0 && cfg.synthSize < 2 {
		log.Fatal("value err : synthetic table size must >= 2")
	}
}
