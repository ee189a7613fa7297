// Command sigscan benchmarks signature scanners against a binary region and
// checks that they agree.
//
// Usage:
//
//	sigscan -file game.exe [-sig "48 8B ?? ..."] [-sigs sigs.txt] [-runs 100]
//
// Every scanner runs each signature -runs times; average duration and
// throughput are reported, and any disagreement between scanners is an
// error. With -all the complete match sets are compared as well.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/tremwil/scanner-bench/backend/dynlib"
	"github.com/tremwil/scanner-bench/backend/memchr"
	"github.com/tremwil/scanner-bench/internal/haystack"
	"github.com/tremwil/scanner-bench/internal/logging"
	"github.com/tremwil/scanner-bench/pattern"
	"github.com/tremwil/scanner-bench/scan"
)

// defaultSig is a common MSVC x64 function prologue.
const defaultSig = "48 89 5C 24 ?? 48 89 74 24 ?? 57 48 83 EC ?? 48 8B 01 48 8B F9 32 DB"

// rankSample bounds the prefix of the haystack -adaptive-ranks counts.
const rankSample = 16 << 20

type options struct {
	file     string
	sig      string
	sigs     string
	plugin   string
	width    int
	anchors  int
	runs     int
	jobs     int
	all      bool
	linear   bool
	adaptive bool

	logLevel string
	logJSON  bool

	s3Endpoint string
	s3Insecure bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("sigscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.file, "file", "", "haystack: local path, .lz4/.zst file or s3://bucket/key (required)")
	fs.StringVar(&o.sig, "sig", defaultSig, "signature to scan for")
	fs.StringVar(&o.sigs, "sigs", "", "file with one signature per line, scanned concurrently")
	fs.StringVar(&o.plugin, "plugin", "", "Go plugin exporting a Scan function to benchmark")
	fs.IntVar(&o.width, "width", 0, "vector width in bytes: 8, 16, 32 or 64 (0 = detect)")
	fs.IntVar(&o.anchors, "anchors", scan.DefaultAnchors, "needles for the multi-anchor scanner")
	fs.IntVar(&o.runs, "runs", 100, "runs per scanner and signature")
	fs.IntVar(&o.jobs, "jobs", runtime.GOMAXPROCS(0), "signatures scanned in parallel with -sigs")
	fs.BoolVar(&o.all, "all", false, "also compare the complete match sets")
	fs.BoolVar(&o.linear, "linear", false, "include the byte-by-byte reference scanner")
	fs.BoolVar(&o.adaptive, "adaptive-ranks", false, "rank bytes by their frequency in the haystack")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&o.logJSON, "log-json", false, "log JSON records")
	fs.StringVar(&o.s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint for s3:// haystacks")
	fs.BoolVar(&o.s3Insecure, "s3-insecure", false, "disable TLS for the S3 endpoint")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case o.file == "":
		return nil, errors.New("-file is required")
	case o.runs < 1:
		return nil, fmt.Errorf("-runs must be positive, got %d", o.runs)
	case o.jobs < 1:
		return nil, fmt.Errorf("-jobs must be positive, got %d", o.jobs)
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "sigscan:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("-log-level: %w", err)
	}
	log := logging.NewText(stderr, level)
	if o.logJSON {
		log = logging.NewJSON(stderr, level)
	}

	hay, err := haystack.Load(ctx, o.file, haystack.Options{
		Endpoint: o.s3Endpoint,
		Insecure: o.s3Insecure,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer hay.Close()
	data := hay.Bytes()

	cfg := scan.Config{Width: o.width, Anchors: o.anchors}
	if o.adaptive {
		ranks := scan.BuildRanks(data[:min(len(data), rankSample)])
		cfg.Ranks = &ranks
	}

	scanners, closeAll, err := buildScanners(cfg, o)
	if err != nil {
		return err
	}
	defer closeAll()

	sigs := []string{o.sig}
	if o.sigs != "" {
		if sigs, err = readSigs(o.sigs); err != nil {
			return err
		}
	}
	width := cfg.Width
	if width == 0 {
		width = scan.DefaultWidth()
	}
	pats := make([]pattern.Pattern, len(sigs))
	for i, sig := range sigs {
		b, err := pattern.Parse(sig)
		if err != nil {
			return fmt.Errorf("signature %d: %w", i+1, err)
		}
		if pats[i], err = pattern.Compile(b.Bytes(), b.Mask(), width); err != nil {
			return fmt.Errorf("signature %d: %w", i+1, err)
		}
	}

	names := make([]string, len(scanners))
	for i, s := range scanners {
		names[i] = scan.Name(s)
	}
	log.InfoContext(ctx, "benchmark starting",
		"bytes", len(data),
		"signatures", len(pats),
		"scanners", strings.Join(names, ","),
		"runs", o.runs,
	)

	b := &bench{
		log:      log,
		data:     data,
		scanners: scanners,
		runs:     o.runs,
		all:      o.all,
	}
	reports, err := b.batch(ctx, pats, o.jobs)
	writeReports(stdout, reports, len(data))
	return err
}

// buildScanners returns the scanners to compare and a func closing the ones
// that need it.
func buildScanners(cfg scan.Config, o *options) ([]scan.Scanner, func(), error) {
	single, err := scan.NewSingle(cfg)
	if err != nil {
		return nil, nil, err
	}
	multi, err := scan.NewMulti(cfg)
	if err != nil {
		return nil, nil, err
	}
	auto, err := scan.NewAuto(cfg)
	if err != nil {
		return nil, nil, err
	}
	scanners := []scan.Scanner{memchr.New(cfg.Ranks), single, multi, auto}
	if o.linear {
		scanners = append(scanners, scan.Linear{})
	}

	closeAll := func() {}
	if o.plugin != "" {
		dl, err := dynlib.Open(o.plugin)
		if err != nil {
			return nil, nil, err
		}
		scanners = append(scanners, dl)
		closeAll = func() { _ = dl.Close() }
	}
	return scanners, closeAll, nil
}

// readSigs reads one signature per line. Blank lines and lines starting with
// '#' are skipped.
func readSigs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sigs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sigs = append(sigs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return nil, fmt.Errorf("%s: no signatures", path)
	}
	return sigs, nil
}
