package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/biosignal/encoding/samfile"
	"github.com/grailbio/biosignal/interval"
)

type samOpts struct {
	index      string
	tempDir    string
	region     string
	withHeader bool
}

func openSAM(ctx context.Context, path string, opts samOpts) (*samfile.File, error) {
	return samfile.Open(ctx, path, samfile.Opts{Index: opts.index, TempDir: opts.tempDir})
}

func count(ctx context.Context, out io.Writer, path string, opts samOpts) error {
	f, err := openSAM(ctx, path, opts)
	if err != nil {
		return err
	}
	var e errors.Once
	n, err := f.Count()
	if err == nil {
		_, err = fmt.Fprintln(out, n)
	}
	e.Set(err)
	e.Set(f.Close())
	return e.Err()
}

func view(ctx context.Context, out io.Writer, path string, opts samOpts) error {
	f, err := openSAM(ctx, path, opts)
	if err != nil {
		return err
	}
	var e errors.Once
	e.Set(viewFile(out, f, opts))
	e.Set(f.Close())
	return e.Err()
}

func viewFile(out io.Writer, f *samfile.File, opts samOpts) error {
	w := bufio.NewWriter(out)
	if opts.withHeader {
		text, err := f.Header().MarshalText()
		if err != nil {
			return err
		}
		if _, err := w.Write(text); err != nil {
			return err
		}
	}
	var (
		it  *samfile.Iterator
		err error
	)
	if opts.region != "" {
		iv, perr := interval.Parse(opts.region)
		if perr != nil {
			return perr
		}
		it, err = f.Query(iv.Chr(), iv.Low()-1, iv.High())
	} else {
		it, err = f.Iterator()
	}
	if err != nil {
		return err
	}
	for it.Scan() {
		line, err := it.Record().MarshalSAM(sam.FlagDecimal)
		if err != nil {
			_ = it.Close()
			return err
		}
		if _, err := w.Write(line); err != nil {
			_ = it.Close()
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			_ = it.Close()
			return err
		}
	}
	if err := it.Close(); err != nil {
		return err
	}
	return w.Flush()
}
