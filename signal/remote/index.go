package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/biosignal/signal"
	"v.io/x/lib/vlog"
)

func init() {
	signal.RegisterRemote("http", Open)
	signal.RegisterRemote("https", Open)
}

// Index is a signal.Index backed by a server.  The chromosome list, bounds
// and totals are fetched once by Open; each call to Entries is one request.
type Index struct {
	base   string
	client *http.Client
	chroms []string
	bounds map[string]ChromBounds
	totals signal.Summary
	cursor signal.Cursor
}

// Open connects to the server at baseURL using http.DefaultClient.
func Open(ctx context.Context, baseURL string) (signal.Index, error) {
	return NewIndex(ctx, baseURL, http.DefaultClient)
}

// NewIndex connects to the server at baseURL.
func NewIndex(ctx context.Context, baseURL string, client *http.Client) (*Index, error) {
	idx := &Index{
		base:   strings.TrimRight(baseURL, "/"),
		client: client,
		bounds: map[string]ChromBounds{},
	}
	var chroms []ChromBounds
	if err := idx.get(ctx, "/chromosomes", &chroms); err != nil {
		return nil, err
	}
	for _, c := range chroms {
		idx.chroms = append(idx.chroms, c.Chr)
		idx.bounds[c.Chr] = c
	}
	if err := idx.get(ctx, "/summary", &idx.totals); err != nil {
		return nil, err
	}
	vlog.VI(1).Infof("%s: remote index with %d chromosomes", idx.base, len(idx.chroms))
	return idx, nil
}

// get fetches base+path and decodes the JSON response into v.  Non-200
// responses are mapped to error kinds: 404 to NotExist, 400 to Invalid.
func (idx *Index) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequest("GET", idx.base+path, nil)
	if err != nil {
		return errors.E(errors.Invalid, idx.base+path, err)
	}
	resp, err := idx.client.Do(req.WithContext(ctx))
	if err != nil {
		return errors.E(errors.Unavailable, idx.base+path, err)
	}
	defer resp.Body.Close() // nolint: errcheck
	if resp.StatusCode != http.StatusOK {
		var msg Error
		if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil || msg.Error == "" {
			msg.Error = resp.Status
		}
		kind := errors.Other
		switch resp.StatusCode {
		case http.StatusNotFound:
			kind = errors.NotExist
		case http.StatusBadRequest:
			kind = errors.Invalid
		}
		return errors.E(kind, fmt.Sprintf("%s%s: %s (request %s)", idx.base, path, msg.Error, msg.RequestID))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.E(errors.Integrity, idx.base+path, err)
	}
	return nil
}

// Chromosomes implements signal.Index.
func (idx *Index) Chromosomes() []string { return idx.chroms }

// Bounds implements signal.Index.
func (idx *Index) Bounds(chr string) (int, int, bool) {
	b, ok := idx.bounds[chr]
	if !ok || !b.HasData {
		return 0, 0, false
	}
	return b.Start, b.Stop, true
}

// Entries implements signal.Index.
func (idx *Index) Entries(chr string, start0, end int) (signal.EntryIterator, error) {
	active := idx.cursor.Next()
	q := url.Values{}
	q.Set("chr", chr)
	q.Set("start", strconv.Itoa(start0))
	q.Set("end", strconv.Itoa(end))
	var wire []Entry
	if err := idx.get(vcontext.Background(), "/entries?"+q.Encode(), &wire); err != nil {
		return nil, err
	}
	entries := make([]signal.Entry, len(wire))
	for i, e := range wire {
		entries[i] = e.ToEntry()
	}
	return signal.NewSliceIterator(entries, active), nil
}

// Totals implements signal.Index.
func (idx *Index) Totals() signal.Summary { return idx.totals }

// Close implements signal.Index.
func (idx *Index) Close() error {
	idx.cursor.Invalidate()
	return nil
}
