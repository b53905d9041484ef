package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/sarpt/goutils/pkg/listflag"
	"golang.org/x/term"

	"varatio/internal/analyzer"
	"varatio/internal/cropfilter"
	"varatio/internal/logging"
	"varatio/internal/mediatypes"
	"varatio/internal/procexec"
	"varatio/internal/timeline"
	"varatio/internal/workers"
)

const usage = `Usage: varatio-analyze [flags] FILE...

Detects aspect-ratio changes in video files, prints the segments and the
ffmpeg crop filter for each one, and optionally writes sidecar files.

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := term.IsTerminal(int(os.Stdout.Fd()))
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, procexec.NewExec(), progress))
}

type options struct {
	write    bool
	verbose  bool
	workers  int
	format   string
	dirs     *listflag.StringList
	analyzer analyzer.Config
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	fset := flag.NewFlagSet("varatio-analyze", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprint(stderr, usage)
		fset.PrintDefaults()
	}

	def := analyzer.DefaultConfig()
	opts := &options{dirs: listflag.NewStringList([]string{})}
	fset.BoolVar(&opts.write, "write", false, "write a sidecar next to each file with variable aspect ratios")
	fset.BoolVar(&opts.verbose, "v", false, "log tool invocations and classification details")
	fset.IntVar(&opts.workers, "workers", workers.ForAnalysis(0), "number of files analysed concurrently")
	fset.StringVar(&opts.format, "format", "clock", "sidecar start-time format: clock or seconds")
	fset.Var(opts.dirs, "dir", "directory to search for videos; may be repeated")
	fset.StringVar(&opts.analyzer.FFmpegPath, "ffmpeg", def.FFmpegPath, "ffmpeg binary")
	fset.StringVar(&opts.analyzer.FFprobePath, "ffprobe", def.FFprobePath, "ffprobe binary")
	fset.IntVar(&opts.analyzer.BlackThreshold, "black-threshold", def.BlackThreshold, "cropdetect black level (0-255)")
	fset.Float64Var(&opts.analyzer.Tolerance, "tolerance", def.Tolerance, "maximum ratio difference treated as the same ratio")
	fset.Float64Var(&opts.analyzer.MinSegmentDuration, "min-duration", def.MinSegmentDuration, "shortest segment kept, in seconds")

	if err := fset.Parse(args); err != nil {
		return nil, nil, err
	}

	f, ok := timeline.ParseFormat(opts.format)
	if !ok {
		return nil, nil, fmt.Errorf("invalid -format %q", opts.format)
	}
	opts.analyzer.SidecarFormat = f
	opts.analyzer.SkipWrite = !opts.write
	if opts.analyzer.BlackThreshold < 0 || opts.analyzer.BlackThreshold > 255 {
		return nil, nil, fmt.Errorf("-black-threshold must be between 0 and 255")
	}
	return opts, fset.Args(), nil
}

// findVideos walks dir and returns the videos below it, skipping hidden
// files and directories.
func findVideos(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && mediatypes.IsHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && mediatypes.IsVideo(path) {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, runner procexec.Runner, progress bool) int {
	opts, files, err := parseFlags(args, stderr)
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "varatio-analyze: %v\n", err)
		return 2
	}

	if opts.verbose {
		logging.SetLevel(logging.LevelDebug)
	} else {
		logging.SetLevel(logging.LevelWarn)
	}

	for _, dir := range opts.dirs.Values() {
		found, err := findVideos(dir)
		if err != nil {
			fmt.Fprintf(stderr, "varatio-analyze: %v\n", err)
			return 2
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	a := analyzer.New(runner, opts.analyzer)

	var mu sync.Mutex
	done := 0
	sum := a.AnalyzeAll(ctx, files, opts.workers, func(rep analyzer.Report) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if progress {
			fmt.Fprintf(stdout, "[%d/%d] ", done, len(files))
		}
		printReport(stdout, rep)
	})

	fmt.Fprintf(stdout, "\n%d variable, %d uniform, %d failed", sum.Variable, sum.Uniform, sum.Failed)
	if sum.Canceled+sum.Skipped > 0 {
		fmt.Fprintf(stdout, ", %d canceled, %d skipped", sum.Canceled, sum.Skipped)
	}
	fmt.Fprintln(stdout)

	switch {
	case sum.Failed > 0:
		return 1
	case ctx.Err() != nil:
		return 130
	}
	return 0
}

func printReport(w io.Writer, rep analyzer.Report) {
	fmt.Fprintf(w, "%s: %s\n", rep.Path, rep.Status)
	switch rep.Status {
	case analyzer.StatusFailed:
		fmt.Fprintf(w, "  error: %v\n", rep.Err)
		return
	case analyzer.StatusVariable:
	default:
		return
	}

	tl := timeline.FromResult(rep.Result)
	for _, s := range tl.Segments {
		fmt.Fprintf(w, "  %s  %s\n", timeline.ClockString(s.Start), s.Label)
	}
	if filter := cropfilter.Build(tl); filter != "" {
		fmt.Fprintf(w, "  filter: %s\n", filter)
	} else {
		fmt.Fprintln(w, "  filter: none (no segment can be cropped)")
	}
	if rep.Sidecar != "" {
		fmt.Fprintf(w, "  sidecar: %s\n", rep.Sidecar)
	}
}
