package main

/*
bio-signal queries per-base signal tracks (bigWig, Wig, bedGraph or a remote
bio-signal server) and SAM/BAM alignment files.

	bio-signal query -region chr1:1000-1100 track.bw
	bio-signal query -bed peaks.bed -format bedgraph track.wig.gz
	bio-signal stats track.bw
	bio-signal serve -port 8080 track.bw
	bio-signal count reads.sam
	bio-signal view -region chr2:500-600 reads.bam
*/

import (
	"github.com/grailbio/biosignal/cmd/bio-signal/cmd"
)

func main() {
	cmd.Run()
}
