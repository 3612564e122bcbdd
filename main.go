// Command convert_accessions rewrites GFF3 seqids between RefSeq and
// GenBank accessions using an NCBI assembly report.
package main

import (
	"accremap/cmd"
)

func main() {
	cmd.Execute()
}
