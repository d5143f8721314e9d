// simfsctl is an interactive REPL for exercising the simfs SIM Elementary
// File cache against a simulated in-memory SIM driver.
//
// Usage:
//
//	simfsctl [flags]
//
// Flags:
//
//	-s, --storage-root   Cache storage root (overrides config)
//	    --imsi            Simulated subscriber IMSI (empty disables caching)
//	    --phase           Simulated SIM phase
//	-c, --config          Explicit config file path
//
// Commands (in REPL):
//
//	load <efid> <structure> <record-len> <a0> <a1> <a2> <hexdata>
//	                                Register a simulated EF with the driver
//	read <efid> <structure> [offset] [num-bytes]
//	                                Read an EF through the cache engine
//	write <efid> <structure> [record] <hexdata>
//	                                Write an EF through the cache engine
//	bitmap <efid>                   Show on-disk cache header/bitmap for an EF
//	wipe                            Force-invalidate the current subscriber cache
//	config                          Show the active configuration
//	help                            Show this help
//	exit / quit / q                 Exit
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/internal/fsx"
	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/simfs"
	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/simfs/simdriver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("simfsctl", flag.ExitOnError)

	storageRoot := fs.StringP("storage-root", "s", "", "cache storage root (overrides config)")
	imsi := fs.String("imsi", "001010000000001", "simulated subscriber IMSI (empty disables caching)")
	phase := fs.Int("phase", 2, "simulated SIM phase")
	configPath := fs.StringP("config", "c", "", "explicit config file path")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: simfsctl [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Interactive REPL over a simulated SIM EF cache.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	cfg, _, err := simfs.LoadConfig(
		workDir, *configPath, simfs.Config{StorageRoot: *storageRoot}, fs.Changed("storage-root"), os.Environ(),
	)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(cfg.StorageRoot)
	if err != nil {
		return fmt.Errorf("resolve storage root: %w", err)
	}

	realFS := fsx.NewReal()
	identity := simdriver.NewIdentity(*imsi, simfs.Phase(*phase))

	if _, ok := identity.IMSI(); ok {
		if err := simfs.CheckVersion(realFS, root, *imsi, simfs.Phase(*phase)); err != nil {
			return fmt.Errorf("check cache version: %w", err)
		}
	}

	scheduler := simfs.NewSerialScheduler()
	defer scheduler.Stop()

	driver := simdriver.New(scheduler)
	engine := simfs.NewEngine(realFS, root, identity, driver, scheduler, nil)
	defer engine.Close()

	forcedUncacheable, err := cfg.ForceUncacheableEFIDs()
	if err != nil {
		return fmt.Errorf("parse force_uncacheable: %w", err)
	}

	engine.SetForceUncacheable(forcedUncacheable)

	repl := &REPL{
		engine:   engine,
		driver:   driver,
		identity: identity,
		fs:       realFS,
		cfg:      cfg,
		root:     root,
	}

	return repl.Run()
}

// REPL is the interactive command loop.
type REPL struct {
	engine   *simfs.Engine
	driver   *simdriver.Driver
	identity *simdriver.Identity
	fs       fsx.FS
	cfg      simfs.Config
	root     string
	liner    *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".simfsctl_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("simfsctl - SIM EF cache CLI (storage_root=%s)\n", r.root)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("simfsctl> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
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

		case "config":
			r.cmdConfig()

		case "load":
			r.cmdLoad(args)

		case "read":
			r.cmdRead(args)

		case "write":
			r.cmdWrite(args)

		case "bitmap":
			r.cmdBitmap(args)

		case "wipe":
			r.cmdWipe()

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
		"load", "read", "write", "bitmap", "wipe", "config",
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
	fmt.Println("  load <efid> <structure> <record-len> <a0> <a1> <a2> <hexdata>")
	fmt.Println("                                  Register a simulated EF with the driver")
	fmt.Println("  read <efid> <structure> [offset] [num-bytes]")
	fmt.Println("                                  Read an EF through the cache engine")
	fmt.Println("  write <efid> <structure> [record] <hexdata>")
	fmt.Println("                                  Write an EF through the cache engine")
	fmt.Println("  bitmap <efid>                   Show on-disk cache header/bitmap for an EF")
	fmt.Println("  wipe                            Force-invalidate the current subscriber cache")
	fmt.Println("  config                          Show the active configuration")
	fmt.Println("  help                            Show this help")
	fmt.Println("  exit / quit / q                 Exit")
	fmt.Println()
	fmt.Println("<efid> is 4 hex digits (e.g. 6f05). <structure> is transparent|fixed|cyclic.")
	fmt.Println("<a0> <a1> <a2> are the 3 raw access-condition bytes, in hex (e.g. 0f 00 ff).")
}

func (r *REPL) cmdConfig() {
	out, err := simfs.FormatConfig(r.cfg)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(out)
}

func parseEFID(s string) (simfs.EFID, error) {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid EF id %q: %w", s, err)
	}

	return simfs.EFID(v), nil
}

func parseStructure(s string) (simfs.Structure, error) {
	switch strings.ToLower(s) {
	case "transparent", "t":
		return simfs.StructureTransparent, nil
	case "fixed", "f":
		return simfs.StructureFixed, nil
	case "cyclic", "c":
		return simfs.StructureCyclic, nil
	default:
		return 0, fmt.Errorf("unknown structure %q (want transparent|fixed|cyclic)", s)
	}
}

func (r *REPL) cmdLoad(args []string) {
	if len(args) < 7 {
		fmt.Println("usage: load <efid> <structure> <record-len> <a0> <a1> <a2> <hexdata>")
		return
	}

	efid, err := parseEFID(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	structure, err := parseStructure(args[1])
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	recordLen, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Println("error: invalid record length:", err)
		return
	}

	var access [3]byte

	for i := range access {
		b, err := hex.DecodeString(args[3+i])
		if err != nil || len(b) != 1 {
			fmt.Printf("error: access byte %d must be 1 hex byte\n", i)
			return
		}

		access[i] = b[0]
	}

	data, err := hex.DecodeString(args[6])
	if err != nil {
		fmt.Println("error: invalid hex data:", err)
		return
	}

	r.driver.AddFile(efid, simdriver.File{
		Structure:    structure,
		RecordLength: recordLen,
		Access:       access,
		Data:         data,
	})

	fmt.Printf("loaded EF %s: %s, %d bytes\n", efid, structure, len(data))
}

func (r *REPL) cmdRead(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: read <efid> <structure> [offset] [num-bytes]")
		return
	}

	efid, err := parseEFID(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	structure, err := parseStructure(args[1])
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	offset := 0
	if len(args) > 2 {
		offset, err = strconv.Atoi(args[2])
		if err != nil {
			fmt.Println("error: invalid offset:", err)
			return
		}
	}

	numBytes := 0
	if len(args) > 3 {
		numBytes, err = strconv.Atoi(args[3])
		if err != nil {
			fmt.Println("error: invalid num-bytes:", err)
			return
		}
	}

	done := make(chan struct{})

	var (
		ok         bool
		total      int
		gotRecords [][]byte
	)

	readErr := r.engine.Read(efid, structure, offset, numBytes, func(
		success bool, totalBytes, current int, data []byte, recordLength int, _ any,
	) {
		defer func() {
			if !success || structure == simfs.StructureTransparent || (recordLength > 0 && current*recordLength >= totalBytes) {
				close(done)
			}
		}()

		ok = success
		if !success {
			return
		}

		total = totalBytes
		gotRecords = append(gotRecords, append([]byte(nil), data...))
	}, nil)
	if readErr != nil {
		fmt.Println("error:", readErr)
		return
	}

	<-done

	if !ok {
		fmt.Println("read failed")
		return
	}

	fmt.Printf("ok, %d bytes total\n", total)

	for i, rec := range gotRecords {
		fmt.Printf("  [%d] %s\n", i+1, hex.EncodeToString(rec))
	}
}

func (r *REPL) cmdWrite(args []string) {
	if len(args) < 3 {
		fmt.Println("usage: write <efid> <structure> [record] <hexdata>")
		return
	}

	efid, err := parseEFID(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	structure, err := parseStructure(args[1])
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	record := 0
	dataArg := args[2]

	if structure == simfs.StructureFixed && len(args) >= 4 {
		record, err = strconv.Atoi(args[2])
		if err != nil {
			fmt.Println("error: invalid record number:", err)
			return
		}

		dataArg = args[3]
	}

	data, err := hex.DecodeString(dataArg)
	if err != nil {
		fmt.Println("error: invalid hex data:", err)
		return
	}

	done := make(chan struct{})

	var ok bool

	writeErr := r.engine.Write(efid, structure, record, data, func(success bool, _ any) {
		ok = success
		close(done)
	}, nil)
	if writeErr != nil {
		fmt.Println("error:", writeErr)
		return
	}

	<-done

	if ok {
		fmt.Println("ok")
	} else {
		fmt.Println("write failed")
	}
}

func (r *REPL) cmdBitmap(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: bitmap <efid>")
		return
	}

	efid, err := parseEFID(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	imsi, ok := r.identity.IMSI()
	if !ok {
		fmt.Println("no IMSI configured, caching disabled")
		return
	}

	status, err := simfs.Inspect(r.fs, r.root, imsi, r.identity.Phase(), efid)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if !status.Exists {
		fmt.Println("no cache file for this EF")
		return
	}

	fmt.Printf("structure=%s length=%d record_length=%d error_type=%d\n",
		status.Info.Structure, status.Info.Length, status.Info.RecordLength, status.Info.ErrorType)
	fmt.Printf("present units: %v\n", status.Present)
}

func (r *REPL) cmdWipe() {
	imsi, ok := r.identity.IMSI()
	if !ok {
		fmt.Println("no IMSI configured, nothing to wipe")
		return
	}

	if err := simfs.ForceWipe(r.fs, r.root, imsi, r.identity.Phase()); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("cache wiped")
}
