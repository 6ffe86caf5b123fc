// nbmap-bench drives the concurrent load profiles used to validate
// nbmap.Map under contention: a read/write hammer and a delete-heavy
// churn workload, either from a single JSONC scenario file or a YAML
// suite of several. Results are written as JSON reports via an atomic
// rename so a reader never observes a partially written report.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	natomic "github.com/natefinch/atomic"
	"github.com/spf13/pflag"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/onnlucky/nbhashmap-go/pkg/nbmap"
)

// Scenario configures one load profile run against a fresh Map.
//
// Profile selects the access pattern:
//   - "hammer": every goroutine does an even mix of PutIf and Get across
//     a shared, bounded keyspace — exercises resize-under-contention.
//   - "churn": every goroutine alternates insert-if-absent and
//     unconditional delete of its own private keyspace slice — exercises
//     the compact-resize heuristic (many tombstones, low occupancy).
type Scenario struct {
	Name          string `json:"name" yaml:"name"`
	Profile       string `json:"profile" yaml:"profile"`
	Goroutines    int    `json:"goroutines" yaml:"goroutines"`
	OpsPerWorker  int    `json:"ops_per_worker" yaml:"ops_per_worker"` //nolint:tagliatelle
	KeyspaceSize  int    `json:"keyspace_size" yaml:"keyspace_size"`   //nolint:tagliatelle
	InitialTable  int    `json:"initial_table" yaml:"initial_table"`   //nolint:tagliatelle
}

// Suite is a named collection of scenarios, loaded from YAML for a
// multi-scenario run.
type Suite struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Report is one scenario's recorded outcome.
type Report struct {
	Scenario    string        `json:"scenario"`
	Goroutines  int           `json:"goroutines"`
	TotalOps    int64         `json:"total_ops"`     //nolint:tagliatelle
	Elapsed     time.Duration `json:"elapsed_ns"`    //nolint:tagliatelle
	OpsPerSec   float64       `json:"ops_per_sec"`   //nolint:tagliatelle
	FinalSize   int           `json:"final_size"`    //nolint:tagliatelle
	TableLength int           `json:"table_length"`  //nolint:tagliatelle
	Resizes     uint64        `json:"resizes"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		scenarioPath = pflag.StringP("scenario", "s", "", "path to a single-scenario JSONC config")
		suitePath    = pflag.StringP("suite", "u", "", "path to a multi-scenario YAML suite")
		outPath      = pflag.StringP("out", "o", "", "write JSON report(s) to this path (a directory when more than one scenario runs)")
	)
	pflag.Parse()

	var scenarios []Scenario

	switch {
	case *suitePath != "":
		suite, err := loadSuite(*suitePath)
		if err != nil {
			return err
		}
		scenarios = suite.Scenarios

	case *scenarioPath != "":
		sc, err := loadScenario(*scenarioPath)
		if err != nil {
			return err
		}
		scenarios = []Scenario{sc}

	default:
		scenarios = []Scenario{defaultHammer(), defaultChurn()}
	}

	reports := make([]Report, 0, len(scenarios))
	for _, sc := range scenarios {
		fmt.Fprintf(os.Stderr, "running %s (profile=%s, goroutines=%d)...\n", sc.Name, sc.Profile, sc.Goroutines)

		rep, err := runScenario(sc)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}

		fmt.Fprintf(os.Stderr, "  %.0f ops/sec, final size %d, table length %d, %d resizes\n",
			rep.OpsPerSec, rep.FinalSize, rep.TableLength, rep.Resizes)

		reports = append(reports, rep)
	}

	if *outPath != "" {
		return writeReports(*outPath, reports)
	}
	return nil
}

func defaultHammer() Scenario {
	return Scenario{Name: "hammer-default", Profile: "hammer", Goroutines: 32, OpsPerWorker: 50_000, KeyspaceSize: 4096, InitialTable: 4}
}

func defaultChurn() Scenario {
	return Scenario{Name: "churn-default", Profile: "churn", Goroutines: 16, OpsPerWorker: 20_000, KeyspaceSize: 256, InitialTable: 4}
}

func loadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario file: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var sc Scenario
	if err := json.Unmarshal(standardized, &sc); err != nil {
		return Scenario{}, fmt.Errorf("invalid scenario JSON: %w", err)
	}
	return sc, nil
}

func loadSuite(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("reading suite file: %w", err)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return Suite{}, fmt.Errorf("invalid suite YAML: %w", err)
	}
	return suite, nil
}

// runScenario executes one scenario against a fresh Map[int,int64] and
// returns its measured outcome.
func runScenario(sc Scenario) (Report, error) {
	m := nbmap.New[int, int64](
		func(k int) uint32 { return uint32(k * 2654435761) }, //nolint:gomnd // Knuth multiplicative hash constant
		func(a, b int) bool { return a == b },
		func(int) {},
		nbmap.Options{InitialCapacity: sc.InitialTable},
	)

	var totalOps atomic.Int64
	var wg sync.WaitGroup

	start := time.Now()

	for worker := 0; worker < sc.Goroutines; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			switch sc.Profile {
			case "churn":
				runChurnWorker(m, worker, sc, &totalOps)
			default:
				runHammerWorker(m, worker, sc, &totalOps)
			}
		}(worker)
	}

	wg.Wait()
	elapsed := time.Since(start)

	st := m.Stats()
	return Report{
		Scenario:    sc.Name,
		Goroutines:  sc.Goroutines,
		TotalOps:    totalOps.Load(),
		Elapsed:     elapsed,
		OpsPerSec:   float64(totalOps.Load()) / elapsed.Seconds(),
		FinalSize:   st.Size,
		TableLength: st.TableLength,
		Resizes:     st.Resizes,
	}, nil
}

// runHammerWorker does an even mix of reads and unconditional writes over
// a keyspace shared by every goroutine.
func runHammerWorker(m *nbmap.Map[int, int64], worker int, sc Scenario, totalOps *atomic.Int64) {
	rng := rand.New(rand.NewSource(int64(worker) + 1)) //nolint:gosec // reproducible load, not a security context

	for i := 0; i < sc.OpsPerWorker; i++ {
		key := rng.Intn(sc.KeyspaceSize)

		if rng.Intn(2) == 0 {
			m.PutIf(key, nbmap.Some(int64(i)), nbmap.Ignore[int64]())
		} else {
			m.Get(key)
		}

		totalOps.Add(1)
	}
}

// runChurnWorker alternates insert and delete over a private keyspace
// slice, so every worker's slice independently cycles through high
// tombstone counts — the scenario the compact-resize heuristic targets.
func runChurnWorker(m *nbmap.Map[int, int64], worker int, sc Scenario, totalOps *atomic.Int64) {
	base := worker * sc.KeyspaceSize

	for i := 0; i < sc.OpsPerWorker; i++ {
		key := base + i%sc.KeyspaceSize

		m.PutIf(key, nbmap.Some(int64(i)), nbmap.Is(nbmap.None[int64]()))
		totalOps.Add(1)

		m.PutIf(key, nbmap.None[int64](), nbmap.Ignore[int64]())
		totalOps.Add(1)
	}
}

func writeReports(outPath string, reports []Report) error {
	if len(reports) == 1 {
		return writeReportFile(outPath, reports[0])
	}

	if err := os.MkdirAll(outPath, 0o750); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	for i, rep := range reports {
		name := rep.Scenario
		if name == "" {
			name = "scenario-" + strconv.Itoa(i)
		}
		if err := writeReportFile(filepath.Join(outPath, name+".json"), rep); err != nil {
			return err
		}
	}
	return nil
}

func writeReportFile(path string, rep Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if err := natomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing report atomically: %w", err)
	}
	return nil
}
