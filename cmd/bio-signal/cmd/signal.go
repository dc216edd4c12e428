package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/biosignal/interval"
	"github.com/grailbio/biosignal/server"
	"github.com/grailbio/biosignal/signal"
)

type queryOpts struct {
	openOpts    signal.OpenOpts
	regions     string
	bedPath     string
	format      string
	skipMissing bool
}

func setType(opts *signal.OpenOpts, name string) error {
	if name == "" {
		return nil
	}
	if opts.Type = signal.ParseFileType(name); opts.Type == signal.Unknown {
		return fmt.Errorf("unknown track type %q", name)
	}
	return nil
}

// queryIntervals returns the intervals named by -region or -bed.
func queryIntervals(opts queryOpts) ([]interval.Interval, error) {
	if opts.bedPath != "" {
		return interval.ReadBEDFromPath(opts.bedPath, interval.ReadBEDOpts{})
	}
	var ivs []interval.Interval
	for _, region := range strings.Split(opts.regions, ",") {
		iv, err := interval.Parse(region)
		if err != nil {
			return nil, err
		}
		ivs = append(ivs, iv)
	}
	return ivs, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeContig(w *bufio.Writer, c *signal.Contig, format string) error {
	switch format {
	case "bedgraph":
		return c.WriteBedGraph(w)
	case "mean":
		_, err := fmt.Fprintf(w, "%s\t%d\t%s\n", c.Interval, c.Coverage(), formatValue(c.Mean()))
		return err
	default:
		values := make([]string, len(c.Values))
		for i, v := range c.Values {
			values[i] = formatValue(v)
		}
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\n", c.Interval, c.Interval.Strand(), strings.Join(values, ","))
		return err
	}
}

func query(ctx context.Context, out io.Writer, path string, opts queryOpts) (err error) {
	switch opts.format {
	case "values", "bedgraph", "mean":
	default:
		return fmt.Errorf("unknown output format %q", opts.format)
	}
	ivs, err := queryIntervals(opts)
	if err != nil {
		return err
	}
	src, err := signal.Open(ctx, path, opts.openOpts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(out)
	for _, iv := range ivs {
		c, err := src.Query(iv)
		if err != nil {
			if _, ok := signal.AsCoverageError(err); ok && opts.skipMissing {
				log.Printf("%s: skipping %v: %v", path, iv, err)
				continue
			}
			return err
		}
		if err := writeContig(w, c, opts.format); err != nil {
			return err
		}
	}
	return w.Flush()
}

func stats(ctx context.Context, out io.Writer, path string, opts signal.OpenOpts) error {
	src, err := signal.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	var e errors.Once
	_, err = io.WriteString(out, signal.Describe(src))
	e.Set(err)
	e.Set(src.Close())
	return e.Err()
}

func serve(ctx context.Context, path, addr string) error {
	idx, err := signal.OpenIndex(ctx, path)
	if err != nil {
		return err
	}
	defer idx.Close() // nolint: errcheck
	return server.New(signal.New(idx), idx).Run(addr)
}
