// Package bigwig reads BigWig files.  For the file layout, see
// http://genome.ucsc.edu/goldenPath/help/bigWig.html and the bbi format
// description in Kent et al., Bioinformatics 26(17) 2010.
//
// A BigWig file holds a header, a chromosome B+ tree mapping names to IDs and
// sizes, an R-tree index over (optionally zlib-compressed) data blocks, and a
// total summary with the number of bases covered, the sum and sum of squares
// of all values, and their extrema.  Zoom levels are ignored; queries always
// decode the full-resolution data.
//
// The Reader loads the chromosome list and the R-tree leaves when it is
// opened.  Afterwards a query only reads the data blocks it needs.
package bigwig
