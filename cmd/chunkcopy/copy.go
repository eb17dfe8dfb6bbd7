package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/ib-77/chunkflow/internal/config"
	"github.com/ib-77/chunkflow/pkg/content"
	"github.com/ib-77/chunkflow/pkg/copier"
	"github.com/ib-77/chunkflow/pkg/flow"
	"github.com/ib-77/chunkflow/pkg/intercept"
)

type copyFlags struct {
	to          string
	chunkSize   int
	parallel    int
	digest      string
	failFast    bool
	metricsAddr string
	metricsFile string
}

func newCopyCmd(a *app) *cobra.Command {
	var f copyFlags

	cmd := &cobra.Command{
		Use:   "copy <src> <dst> | copy --to <dir> <src>...",
		Short: "Copy one file to a path, or many files into a directory",
		Args: func(cmd *cobra.Command, args []string) error {
			if f.to != "" {
				return cobra.MinimumNArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, a.cfg)

			pairs := make([][2]string, 0, len(args))
			if f.to != "" {
				for _, src := range args {
					pairs = append(pairs, [2]string{src, filepath.Join(f.to, filepath.Base(src))})
				}
			} else {
				pairs = append(pairs, [2]string{args[0], args[1]})
			}
			return runCopy(cmd, a.cfg, a.logger, pairs)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.to, "to", "", "target directory for many sources")
	flags.IntVar(&f.chunkSize, "chunk-size", 0, "read size per chunk in bytes")
	flags.IntVarP(&f.parallel, "parallel", "p", 0, "files copied at the same time")
	flags.StringVar(&f.digest, "digest", "", "md5, sha1, sha256 or sha512 of every copied file")
	flags.BoolVar(&f.failFast, "fail-fast", false, "cancel remaining copies after the first failure")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /metrics on this address while copying")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write metrics in text format to this file when done")
	return cmd
}

// apply overrides the loaded config with the flags given on the command line.
func (f *copyFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("chunk-size") && f.chunkSize > 0 {
		cfg.Transfer.ChunkSize = f.chunkSize
	}
	if flags.Changed("parallel") && f.parallel > 0 {
		cfg.Transfer.Parallel = f.parallel
	}
	if flags.Changed("digest") {
		cfg.Transfer.Digest = f.digest
	}
	if flags.Changed("fail-fast") {
		cfg.Transfer.ContinueOnError = !f.failFast
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Listen = f.metricsAddr
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
}

type fileJob struct {
	src, dst string
	in       *os.File
	out      *os.File
	digest   *intercept.DigestHook
}

func (j *fileJob) close() error {
	var merr *multierror.Error
	if err := j.in.Close(); err != nil && !isClosed(err) {
		merr = multierror.Append(merr, err)
	}
	if err := j.out.Close(); err != nil && !isClosed(err) {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

// The reader source closes its input when a copy fails.
func isClosed(err error) bool {
	return errors.Is(err, os.ErrClosed)
}

func openJob(src, dst string) (*fileJob, error) {
	if sameFile(src, dst) {
		return nil, fmt.Errorf("%s: source and destination are the same file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	out, err := os.Create(dst)
	if err != nil {
		in.Close()
		return nil, err
	}
	return &fileJob{src: src, dst: dst, in: in, out: out}, nil
}

func sameFile(a, b string) bool {
	sa, err := os.Stat(a)
	if err != nil {
		return false
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(sa, sb)
}

func runCopy(cmd *cobra.Command, cfg *config.Config, logger log.Logger, pairs [][2]string) error {
	ctx := cmd.Context()

	exp, err := startMetrics(cfg.Metrics, logger)
	if err != nil {
		return err
	}

	var (
		merr  *multierror.Error
		files []*fileJob
		jobs  []copier.Job
	)

	for _, p := range pairs {
		fj, err := openJob(p[0], p[1])
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		opts := []copier.Option{
			copier.WithLogger(log.With(logger, "src", fj.src)),
			copier.WithMetrics(exp.metrics),
		}
		if cfg.Transfer.Digest != "" {
			fj.digest = intercept.NewDigest(cfg.Transfer.Digest)
			opts = append(opts, copier.WithHook(fj.digest.Hook()))
		}

		files = append(files, fj)
		jobs = append(jobs, copier.Job{
			Name:    fj.src,
			Source:  content.NewReaderSource(ctx, fj.in, cfg.Transfer.ChunkSize),
			Sink:    content.NewWriterSink(bufio.NewWriterSize(fj.out, cfg.Transfer.ChunkSize)),
			Options: opts,
		})
	}

	ctx = flow.WithWorkerOptions(ctx, cfg.Transfer.Parallel)
	ctx = flow.WithProcessOptions(ctx, cfg.Transfer.ContinueOnError)

	level.Debug(logger).Log("event", "start", "files", len(jobs), "parallel", cfg.Transfer.Parallel, "chunk", cfg.Transfer.ChunkSize)
	results, err := copier.TransferAll(ctx, jobs)
	if err != nil {
		merr = multierror.Append(merr, err)
	}

	var copied, total int64
	for i, res := range results {
		fj := files[i]
		if err := fj.close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", fj.dst, err))
		}

		if !res.IsSuccess() {
			if res.IsCancel() {
				level.Warn(logger).Log("event", "cancelled", "src", fj.src, "err", res.Err())
			}
			_ = os.Remove(fj.dst)
			continue
		}

		st := res.Result()
		copied++
		total += st.Bytes
		printSummary(cmd.OutOrStdout(), fj, st)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "copied %d of %d files, %s\n", copied, len(pairs), humanize.Bytes(uint64(total)))

	if err := exp.close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

func printSummary(w io.Writer, fj *fileJob, st copier.Stats) {
	line := fmt.Sprintf("%s -> %s  %s  %d chunks  %s",
		fj.src, fj.dst, humanize.Bytes(uint64(st.Bytes)), st.Chunks, st.Duration().Round(time.Millisecond))
	if fj.digest != nil {
		line += fmt.Sprintf("  %s:%s", fj.digest.Name(), fj.digest.HexSum())
	}
	fmt.Fprintln(w, line)
}
