// Package signal answers per-base queries against genomic signal tracks.
//
// A Source reads one track (a BigWig file, a text Wig or bedGraph file, or a
// remote index served by package server) and returns, for any strand-aware
// interval.Interval, a Contig holding one value per base.  Bases without data
// are NaN.  Crick-strand intervals are returned in their own reading
// direction, i.e. reversed relative to the genome.
//
// Each format is exposed through the Index interface; New builds the query
// engine over any Index, and Open picks the Index implementation from the
// file contents or path.
//
// Sources are not safe for concurrent use.  Every backend keeps a single
// active cursor: starting a query invalidates the previous one.
package signal
