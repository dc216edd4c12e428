package signal

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/biosignal/encoding/bigwig"
	"v.io/x/lib/vlog"
)

// FileType identifies a track format.
type FileType int

const (
	// Unknown is a sentinel; Open guesses the type from the path.
	Unknown FileType = iota
	// BigWig is the UCSC binary indexed format.
	BigWig
	// Wig covers the text formats: wiggle and bedGraph, optionally gzipped.
	Wig
	// Remote is an index served over HTTP by package server.
	Remote
)

// ParseFileType parses a file type name: "bigwig", "wig", "bedgraph" or
// "remote".  It returns Unknown for anything else.
func ParseFileType(name string) FileType {
	switch strings.ToLower(name) {
	case "bigwig", "bw":
		return BigWig
	case "wig", "bedgraph":
		return Wig
	case "remote":
		return Remote
	default:
		return Unknown
	}
}

func (t FileType) String() string {
	switch t {
	case BigWig:
		return "bigwig"
	case Wig:
		return "wig"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

// OpenOpts defines options for Open.
type OpenOpts struct {
	// Type forces the track format.  If Unknown, the format is guessed by
	// GuessFileType.
	Type FileType
}

func mergeOpts(optList []OpenOpts) OpenOpts {
	opts := OpenOpts{}
	for _, o := range optList {
		if o.Type != Unknown {
			opts.Type = o.Type
		}
	}
	return opts
}

// RemoteOpener opens the remote index at url.
type RemoteOpener func(ctx context.Context, url string) (Index, error)

var (
	remoteMu      sync.Mutex
	remoteOpeners = map[string]RemoteOpener{}
)

// RegisterRemote installs the opener used by Open for paths starting with
// scheme + "://".  Package signal/remote registers itself for "http" and
// "https".
func RegisterRemote(scheme string, opener RemoteOpener) {
	remoteMu.Lock()
	remoteOpeners[scheme] = opener
	remoteMu.Unlock()
}

func remoteScheme(path string) (string, RemoteOpener) {
	i := strings.Index(path, "://")
	if i <= 0 {
		return "", nil
	}
	scheme := path[:i]
	remoteMu.Lock()
	defer remoteMu.Unlock()
	return scheme, remoteOpeners[scheme]
}

// IsBigWig reports whether the file at path starts with the BigWig magic
// number.
func IsBigWig(ctx context.Context, path string) (ok bool, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	magic := make([]byte, 4)
	if _, err := io.ReadFull(in.Reader(ctx), magic); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	return bigwig.IsMagic(magic), nil
}

// GuessFileType returns the track format of path.  Paths with a registered
// remote scheme are Remote; otherwise the BigWig magic number is checked,
// then the path suffix.  Everything else is treated as text.
func GuessFileType(ctx context.Context, path string) FileType {
	if _, opener := remoteScheme(path); opener != nil {
		return Remote
	}
	if ok, err := IsBigWig(ctx, path); err == nil && ok {
		return BigWig
	} else if err != nil {
		vlog.VI(1).Infof("%v: could not read magic number: %v", path, err)
	}
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".bw") || strings.HasSuffix(lower, ".bigwig") {
		return BigWig
	}
	return Wig
}

// OpenIndex opens the Index for path.  See Open.
func OpenIndex(ctx context.Context, path string, optList ...OpenOpts) (Index, error) {
	opts := mergeOpts(optList)
	typ := opts.Type
	if typ == Unknown {
		typ = GuessFileType(ctx, path)
	}
	vlog.VI(1).Infof("%v: opening as %v", path, typ)
	switch typ {
	case BigWig:
		return OpenBigWigIndex(ctx, path)
	case Wig:
		return OpenWigIndex(ctx, path)
	case Remote:
		scheme, opener := remoteScheme(path)
		if opener == nil {
			return nil, errors.E(errors.NotSupported, "signal: no remote index registered for scheme \""+scheme+"\": "+path)
		}
		return opener(ctx, path)
	}
	return nil, errors.E(errors.Invalid, "signal: invalid file type for "+path)
}

// Open opens the track at path and returns a Source over it.  The format is
// chosen once, here: BigWig, text Wig/bedGraph, or a remote index for URLs
// whose scheme has been registered with RegisterRemote.
func Open(ctx context.Context, path string, optList ...OpenOpts) (Source, error) {
	idx, err := OpenIndex(ctx, path, optList...)
	if err != nil {
		return nil, err
	}
	return New(idx), nil
}
