/*Package interval implements strand-aware genomic intervals.

  An Interval is a chromosome name plus two 1-based, inclusive endpoints.
  The strand is encoded by the order of the endpoints: an interval whose
  first endpoint is <= its second is on the Watson (forward) strand, and one
  whose first endpoint is greater is on the Crick (reverse) strand.  For
  example, chr1:30-40 is Watson and chr1:40-30 covers the same bases on
  Crick.

  The package also reads intervals from BED files and keeps merged
  interval-unions, which backends use to count covered bases.
*/
package interval
