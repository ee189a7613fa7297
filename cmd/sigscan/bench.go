package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tremwil/scanner-bench/internal/logging"
	"github.com/tremwil/scanner-bench/pattern"
	"github.com/tremwil/scanner-bench/scan"
)

type bench struct {
	log      *logging.Logger
	data     []byte
	scanners []scan.Scanner
	runs     int
	all      bool
}

// result is one scanner's outcome for one signature.
type result struct {
	scanner string
	offset  int
	avg     time.Duration
	matches *roaring64.Bitmap // nil unless comparing match sets
}

// report holds the results of every scanner that accepted a signature.
type report struct {
	sig     string
	results []result
}

// MismatchError reports scanners disagreeing on a signature.
type MismatchError struct {
	Sig       string
	Reference string
	Scanner   string
	Want, Got int
	// Missing and Extra count offsets absent from or added to the
	// reference match set. Zero unless match sets were compared.
	Missing, Extra uint64
}

func (e *MismatchError) Error() string {
	if e.Missing != 0 || e.Extra != 0 {
		return fmt.Sprintf("%s: %s and %s disagree on matches: %d missing, %d extra",
			e.Sig, e.Reference, e.Scanner, e.Missing, e.Extra)
	}
	return fmt.Sprintf("%s: %s and %s disagree: %#x vs %#x", e.Sig, e.Reference, e.Scanner, e.Want, e.Got)
}

// batch benchmarks every pattern, jobs at a time. Reports keep the order of
// pats; the first error cancels the remaining work.
func (b *bench) batch(ctx context.Context, pats []pattern.Pattern, jobs int) ([]report, error) {
	reports := make([]report, len(pats))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, p := range pats {
		g.Go(func() error {
			res, err := b.signature(ctx, p)
			reports[i] = report{sig: p.String(), results: res}
			return err
		})
	}
	err := g.Wait()
	return reports, err
}

// signature runs every scanner on p and checks they agree.
func (b *bench) signature(ctx context.Context, p pattern.Pattern) ([]result, error) {
	log := b.log.WithSignature(p.String())
	var results []result
	for _, s := range b.scanners {
		sl := log.WithScanner(scan.Name(s))
		r, err := b.measure(ctx, sl, s, p)
		if errors.Is(err, scan.ErrUnsupportedPattern) {
			sl.DebugContext(ctx, "scanner skipped", "reason", err)
			continue
		}
		if err != nil {
			return results, fmt.Errorf("%s: %s: %w", p, scan.Name(s), err)
		}
		sl.LogRun(ctx, r.offset, r.avg, len(b.data))
		results = append(results, r)
	}

	err := agree(p.String(), results)
	var me *MismatchError
	if errors.As(err, &me) {
		log.LogMismatch(ctx, me.Reference, me.Scanner, me.Want, me.Got)
	}
	return results, err
}

func (b *bench) measure(ctx context.Context, log *logging.Logger, s scan.Scanner, p pattern.Pattern) (result, error) {
	progress := rate.Sometimes{Interval: time.Second}
	r := result{scanner: scan.Name(s)}

	var total time.Duration
	for i := 0; i < b.runs; i++ {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		start := time.Now()
		off, err := s.Index(b.data, p)
		total += time.Since(start)
		if err != nil {
			return r, err
		}
		if i == 0 {
			r.offset = off
		} else if off != r.offset {
			return r, fmt.Errorf("run %d returned %#x, first run %#x", i+1, off, r.offset)
		}
		progress.Do(func() {
			log.DebugContext(ctx, "scanning", "run", i+1, "runs", b.runs)
		})
	}
	r.avg = total / time.Duration(b.runs)

	if b.all {
		seq, err := s.IndexAll(b.data, p)
		if err != nil {
			return r, err
		}
		r.matches = roaring64.New()
		for off := range seq {
			r.matches.Add(uint64(off))
		}
	}
	return r, nil
}

// agree checks every result against the first.
func agree(sig string, results []result) error {
	if len(results) == 0 {
		return nil
	}
	ref := results[0]
	for _, r := range results[1:] {
		if r.offset != ref.offset {
			return &MismatchError{Sig: sig, Reference: ref.scanner, Scanner: r.scanner, Want: ref.offset, Got: r.offset}
		}
		if ref.matches != nil && r.matches != nil && !ref.matches.Equals(r.matches) {
			return &MismatchError{
				Sig:       sig,
				Reference: ref.scanner,
				Scanner:   r.scanner,
				Want:      ref.offset,
				Got:       r.offset,
				Missing:   roaring64.AndNot(ref.matches, r.matches).GetCardinality(),
				Extra:     roaring64.AndNot(r.matches, ref.matches).GetCardinality(),
			}
		}
	}
	return nil
}

func writeReports(w io.Writer, reports []report, size int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SIGNATURE\tSCANNER\tOFFSET\tMATCHES\tAVG\tBYTES/NS")
	for _, rep := range reports {
		for _, r := range rep.results {
			off := "-"
			if r.offset >= 0 {
				off = fmt.Sprintf("%#x", r.offset)
			}
			matches := "-"
			if r.matches != nil {
				matches = fmt.Sprint(r.matches.GetCardinality())
			}
			var bpn float64
			if r.avg > 0 {
				bpn = float64(size) / float64(r.avg.Nanoseconds())
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\t%.3f\n", rep.sig, r.scanner, off, matches, r.avg, bpn)
		}
	}
	tw.Flush()
}
