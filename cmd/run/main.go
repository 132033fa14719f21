package main

import "github.com/zintix-labs/qprep/sdk/perf"

// makefile runner
func main() {
	bindVar()
	perf.RunPProf(executeBatch, cfg.pprofmode)
}
