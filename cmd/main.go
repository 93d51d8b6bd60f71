package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/debug"
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/solver"
	"github.com/costat/rocALUTION/solver/multigrid"
)

func main() {
	n := flag.Int("n", 64, "网格边长")
	eps := flag.Float64("eps", multigrid.DefaultCouplingStrength, "强耦合阈值")
	levels := flag.Int("levels", multigrid.DefaultMaxLevels, "最大层数")
	html := flag.String("html", "residual.html", "残差与层级网页")
	png := flag.String("png", "residual.png", "残差曲线图")
	verbose := flag.Int("v", 1, "日志级别")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	desc := backend.Default().WithLogger(log, *verbose)

	a, err := laplace(desc, *n)
	if err != nil {
		log.Error("assemble", "err", err)
		os.Exit(1)
	}
	log.Info("operator", "rows", a.Rows(), "nnz", a.Nnz(), "backend", desc.String())

	// 独立的 AMG 求解
	amg := multigrid.NewRugeStuebenAMG[float64](multigrid.WithCouplingStrength(*eps), multigrid.WithMaxLevels(*levels))
	amg.Init(1e-15, 1e-8, 1e8, 200)
	amgRec := debug.NewRecord("amg")
	amg.RecordHistory(amgRec)
	amg.SetOperator(a)
	if err = amg.Build(); err != nil {
		log.Error("build amg", "err", err)
		os.Exit(1)
	}
	res, err := run(amg, a)
	if err != nil {
		log.Error("amg solve", "err", err)
		os.Exit(1)
	}
	log.Info("amg", "result", res.String(), "rate", amgRec.Rate())
	hierarchy := amg.Hierarchy()
	amg.Clear()

	// AMG 单循环预条件的 BiCGStab(l)
	pre := multigrid.NewRugeStuebenAMG[float64](multigrid.WithCouplingStrength(*eps), multigrid.WithMaxLevels(*levels))
	pre.Init(0, 0, 1e8, 1)
	ks := solver.NewBiCGStabl[float64]()
	ks.Init(1e-15, 1e-8, 1e8, 200)
	ksRec := debug.NewRecord("bicgstabl+amg")
	ks.RecordHistory(ksRec)
	ks.SetOperator(a)
	ks.SetPreconditioner(pre)
	if err = ks.Build(); err != nil {
		log.Error("build bicgstabl", "err", err)
		os.Exit(1)
	}
	if res, err = run(ks, a); err != nil {
		log.Error("bicgstabl solve", "err", err)
		os.Exit(1)
	}
	log.Info("bicgstabl", "result", res.String(), "rate", ksRec.Rate())
	ks.Clear()

	if *html != "" {
		if err = writeCharts(*html, hierarchy, amgRec, ksRec); err != nil {
			log.Error("charts", "err", err)
		}
	}
	if *png != "" {
		if err = debug.SavePlot(*png, "residual", amgRec, ksRec); err != nil {
			log.Error("plot", "err", err)
		}
	}
}

// run 以全一右端项、零初值求解
func run(s solver.Solver[float64], a *local.Matrix[float64]) (solver.Result, error) {
	rhs := local.NewVector[float64](a.Descriptor(), "rhs")
	rhs.CloneBackend(a)
	rhs.Allocate(a.Rows())
	rhs.Ones()
	x := local.NewVector[float64](a.Descriptor(), "x")
	x.CloneBackend(a)
	x.Allocate(a.Cols())
	defer rhs.Clear()
	defer x.Clear()
	return s.Solve(rhs, x)
}

// laplace 二维五点差分
func laplace(desc backend.Descriptor, n int) (*local.Matrix[float64], error) {
	var ri, ci []int
	var v []float64
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			k := y*n + x
			ri, ci, v = append(ri, k), append(ci, k), append(v, 4)
			for _, nb := range [][3]int{{x - 1, y, k - 1}, {x + 1, y, k + 1}, {x, y - 1, k - n}, {x, y + 1, k + n}} {
				if nb[0] >= 0 && nb[0] < n && nb[1] >= 0 && nb[1] < n {
					ri, ci, v = append(ri, k), append(ci, nb[2]), append(v, -1)
				}
			}
		}
	}
	m := local.NewMatrix[float64](desc, "laplace")
	return m, m.Assemble(n*n, n*n, ri, ci, v)
}

func writeCharts(path string, levels []debug.Level, records ...*debug.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	c := &debug.Charts{Title: "Ruge-Stüben AMG", Records: records, Levels: levels}
	return c.Render(f)
}
