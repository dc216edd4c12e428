// Package server exposes a signal.Source over HTTP.  The API is consumed by
// package signal/remote.
//
//   GET /chromosomes                      []remote.ChromBounds
//   GET /bounds/:chr                      remote.ChromBounds
//   GET /entries?chr=&start=&end=         []remote.Entry (0-based half-open)
//   GET /query?region=chr:p1-p2           remote.Contig
//   GET /summary                          signal.Summary
//
// Regions that the track does not cover yield 404; malformed requests yield
// 400.  Every response carries an X-Request-Id header.
package server

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/biosignal/interval"
	"github.com/grailbio/biosignal/signal"
	"github.com/grailbio/biosignal/signal/remote"
)

// RequestIDHeader names the response header holding the request id.
const RequestIDHeader = "X-Request-Id"

// Server serves one Source.  Sources keep a single cursor, so requests are
// serialized.
type Server struct {
	mu     sync.Mutex
	src    signal.Source
	index  signal.Index
	router *gin.Engine
}

// New creates a Server for src.  If idx is not nil, /entries is answered
// from it; otherwise /entries reports 404.  src and idx are typically built
// from the same track, with src = signal.New(idx).
func New(src signal.Source, idx signal.Index) *Server {
	s := &Server{src: src, index: idx, router: gin.New()}
	s.router.Use(gin.Recovery(), requestID)
	s.router.GET("/chromosomes", s.chromosomes)
	s.router.GET("/bounds/:chr", s.bounds)
	s.router.GET("/entries", s.entries)
	s.router.GET("/query", s.query)
	s.router.GET("/summary", s.summary)
	return s
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on addr and serves until an error occurs.
func (s *Server) Run(addr string) error {
	log.Printf("serving signal track on %s", addr)
	return s.router.Run(addr)
}

func requestID(c *gin.Context) {
	id := uuid.New().String()
	c.Set(RequestIDHeader, id)
	c.Header(RequestIDHeader, id)
	c.Next()
}

func fail(c *gin.Context, code int, err error) {
	id := c.GetString(RequestIDHeader)
	log.Debug.Printf("request %s: %s: %v", id, c.Request.URL, err)
	c.AbortWithStatusJSON(code, remote.Error{Error: err.Error(), RequestID: id})
}

// status maps an error to an HTTP status code.
func status(err error) int {
	switch {
	case errors.Is(errors.NotExist, err):
		return http.StatusNotFound
	case errors.Is(errors.Invalid, err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) chromBounds(chr string) remote.ChromBounds {
	start, stop, ok := s.src.Bounds(chr)
	return remote.ChromBounds{Chr: chr, Start: start, Stop: stop, HasData: ok}
}

func (s *Server) chromosomes(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []remote.ChromBounds{}
	for _, chr := range s.src.Chromosomes() {
		out = append(out, s.chromBounds(chr))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) bounds(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chr := c.Param("chr")
	for _, known := range s.src.Chromosomes() {
		if known == chr {
			c.JSON(http.StatusOK, s.chromBounds(chr))
			return
		}
	}
	fail(c, http.StatusNotFound, errors.E(errors.NotExist, "chromosome "+chr+" not found"))
}

func (s *Server) entries(c *gin.Context) {
	if s.index == nil {
		fail(c, http.StatusNotFound, errors.E(errors.NotExist, "raw entries are not served for this track"))
		return
	}
	chr := c.Query("chr")
	start0, err := strconv.Atoi(c.Query("start"))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.E(errors.Invalid, "start", err))
		return
	}
	end, err := strconv.Atoi(c.Query("end"))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.E(errors.Invalid, "end", err))
		return
	}
	if chr == "" || start0 < 0 || end < start0 {
		fail(c, http.StatusBadRequest, errors.E(errors.Invalid, "invalid range "+chr+":"+c.Query("start")+"-"+c.Query("end")))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.index.Entries(chr, start0, end)
	if err != nil {
		fail(c, status(err), err)
		return
	}
	out := []remote.Entry{}
	for it.Scan() {
		out = append(out, remote.FromEntry(it.Entry()))
	}
	if err := it.Close(); err != nil {
		fail(c, status(err), err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) query(c *gin.Context) {
	iv, err := interval.Parse(c.Query("region"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	contig, err := s.src.Query(iv)
	if err != nil {
		fail(c, status(err), err)
		return
	}
	c.JSON(http.StatusOK, remote.FromContig(contig))
}

func (s *Server) summary(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.src.Summary())
}
