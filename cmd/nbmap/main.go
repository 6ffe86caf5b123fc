// nbmap-cli is a REPL for exercising an in-process nbmap.Map[string,string]
// by hand.
//
// Usage:
//
//	nbmap-cli [-capacity N]
//
// Commands (in REPL):
//
//	put <key> <value>              Unconditional write
//	putif <key> <value> <want>     Write only if current value equals want ('-' for absent)
//	get <key>                      Retrieve a value
//	del <key>                      Delete a key
//	delif <key> <want>             Delete only if current value equals want
//	size                           Show live entry count
//	stats                          Show table length and resize count
//	bulk <count> [prefix]          Insert N random key/value pairs
//	bench <count>                  Benchmark put+get performance
//	help                           Show this help
//	exit / quit / q                Exit
package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/onnlucky/nbhashmap-go/pkg/nbmap"
	"github.com/peterh/liner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	capacity := flag.Int("capacity", 0, "initial table capacity")
	flag.Parse()

	m := nbmap.New[string, string](
		func(k string) uint32 { return uint32(len(k)) ^ fnv32(k) },
		func(a, b string) bool { return a == b },
		func(string) {},
		nbmap.Options{InitialCapacity: *capacity},
	)

	repl := &REPL{m: m}
	return repl.Run()
}

// fnv32 is a tiny, dependency-free string hash used only by this REPL's
// default HashFunc; the library itself is hash-agnostic (see
// internal/nbhash for the xxhash-backed option production code should use).
func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := range len(s) {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// REPL is the interactive command loop.
type REPL struct {
	m     *nbmap.Map[string, string]
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nbmap_history")
}

func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("nbmap-cli - in-process concurrent map REPL")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("nbmap> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil

		case "help", "?":
			r.printHelp()

		case "put":
			r.cmdPut(args)

		case "putif":
			r.cmdPutIf(args)

		case "get":
			r.cmdGet(args)

		case "del", "delete":
			r.cmdDel(args)

		case "delif":
			r.cmdDelIf(args)

		case "size", "len", "count":
			r.cmdSize()

		case "stats":
			r.cmdStats()

		case "bulk":
			r.cmdBulk(args)

		case "bench":
			r.cmdBench(args)

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"put", "putif", "get", "del", "delete", "delif",
		"size", "len", "count", "stats", "bulk", "bench",
		"clear", "cls", "help", "exit", "quit", "q",
	}

	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  put <key> <value>              Unconditional write")
	fmt.Println("  putif <key> <value> <want>     Write only if current value equals want ('-' for absent)")
	fmt.Println("  get <key>                      Retrieve a value")
	fmt.Println("  del <key>                      Delete a key")
	fmt.Println("  delif <key> <want>             Delete only if current value equals want")
	fmt.Println("  size                           Show live entry count")
	fmt.Println("  stats                          Show table length and resize count")
	fmt.Println("  bulk <count> [prefix]          Insert N random key/value pairs")
	fmt.Println("  bench <count>                  Benchmark put+get performance")
	fmt.Println("  help                           Show this help")
	fmt.Println("  exit / quit / q                Exit")
}

// parseWant turns '-' into "absent" and anything else into a present
// value, for the putif/delif commands' conditional argument.
func parseWant(s string) nbmap.Optional[string] {
	if s == "-" {
		return nbmap.None[string]()
	}
	return nbmap.Some(s)
}

func formatOptional(o nbmap.Optional[string]) string {
	v, ok := o.Get()
	if !ok {
		return "(absent)"
	}
	return fmt.Sprintf("%q", v)
}

func (r *REPL) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: put <key> <value>")
		return
	}

	prior := r.m.PutIf(args[0], nbmap.Some(args[1]), nbmap.Ignore[string]())
	fmt.Printf("OK: put %q (was %s)\n", args[0], formatOptional(prior))
}

func (r *REPL) cmdPutIf(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: putif <key> <value> <want>")
		return
	}

	prior := r.m.PutIf(args[0], nbmap.Some(args[1]), nbmap.Is(parseWant(args[2])))
	fmt.Printf("prior: %s\n", formatOptional(prior))
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")
		return
	}

	v, ok := r.m.Get(args[0])
	if !ok {
		fmt.Println("(not found)")
		return
	}
	fmt.Printf("%q\n", v)
}

func (r *REPL) cmdDel(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: del <key>")
		return
	}

	prior := r.m.PutIf(args[0], nbmap.None[string](), nbmap.Ignore[string]())
	if _, existed := prior.Get(); existed {
		fmt.Printf("OK: deleted %q\n", args[0])
	} else {
		fmt.Printf("OK: %q did not exist\n", args[0])
	}
}

func (r *REPL) cmdDelIf(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: delif <key> <want>")
		return
	}

	prior := r.m.PutIf(args[0], nbmap.None[string](), nbmap.Is(parseWant(args[1])))
	fmt.Printf("prior: %s\n", formatOptional(prior))
}

func (r *REPL) cmdSize() {
	fmt.Printf("Live entries: %d\n", r.m.Size())
}

func (r *REPL) cmdStats() {
	st := r.m.Stats()
	fmt.Printf("Size:        %d\n", st.Size)
	fmt.Printf("TableLength: %d\n", st.TableLength)
	fmt.Printf("Resizes:     %d\n", st.Resizes)
}

func (r *REPL) cmdBulk(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bulk <count> [prefix]")
		return
	}

	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Println("Error: count must be a positive integer")
		return
	}

	prefix := ""
	if len(args) >= 2 {
		prefix = args[1]
	}

	start := time.Now()
	for i := range count {
		key := prefix + randomHex(8)
		r.m.PutIf(key, nbmap.Some(strconv.Itoa(i)), nbmap.Ignore[string]())
	}
	elapsed := time.Since(start)

	rate := float64(count) / elapsed.Seconds()
	fmt.Printf("OK: inserted %d entries in %v (%.0f ops/sec)\n", count, elapsed.Round(time.Millisecond), rate)
}

func (r *REPL) cmdBench(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bench <count>")
		return
	}

	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Println("Error: count must be a positive integer")
		return
	}

	keys := make([]string, count)
	for i := range count {
		keys[i] = randomHex(16)
	}

	fmt.Printf("Benchmarking %d operations...\n", count)

	putStart := time.Now()
	for i, key := range keys {
		r.m.PutIf(key, nbmap.Some(strconv.Itoa(i)), nbmap.Ignore[string]())
	}
	putElapsed := time.Since(putStart)

	getStart := time.Now()
	hits := 0
	for _, key := range keys {
		if _, ok := r.m.Get(key); ok {
			hits++
		}
	}
	getElapsed := time.Since(getStart)

	fmt.Printf("\nResults:\n")
	fmt.Printf("  Puts: %d ops in %v (%.0f ops/sec)\n",
		count, putElapsed.Round(time.Millisecond), float64(count)/putElapsed.Seconds())
	fmt.Printf("  Gets: %d ops in %v (%.0f ops/sec), %d hits\n",
		count, getElapsed.Round(time.Millisecond), float64(count)/getElapsed.Seconds(), hits)
}

func randomHex(n int) string {
	b := make([]byte, n/2+1)
	rand.Read(b)
	return hex.EncodeToString(b)[:n]
}
