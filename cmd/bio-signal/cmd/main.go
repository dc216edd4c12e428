package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	// Registers the http and https track schemes.
	_ "github.com/grailbio/biosignal/signal/remote"
	"v.io/x/lib/cmdline"
)

func newCmdQuery() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "query",
		Short:    "Print per-base values of a signal track over regions",
		ArgsName: "path",
	}
	opts := queryOpts{}
	cmd.Flags.StringVar(&opts.regions, "region", "", `A comma-separated list of regions to query.
Each region is 'chr:start-stop' or 'chr:pos', 1-based and closed.  A start
greater than stop queries the Crick strand; values are then printed from stop
down to start.`)
	cmd.Flags.StringVar(&opts.bedPath, "bed", "", "BED file of regions to query; this xor -region required. Column 6 '-' selects the Crick strand")
	cmd.Flags.StringVar(&opts.format, "format", "values", `Output format, one of:
  values    one line per region: region, strand, then the values, comma separated
  bedgraph  runs of equal values as bedGraph lines, NaN bases omitted
  mean      one line per region: region, covered bases, mean value`)
	cmd.Flags.BoolVar(&opts.skipMissing, "skip-missing", false, "Log and skip regions outside the track's coverage instead of failing")
	typeFlag := cmd.Flags.String("type", "", "Track type: bigwig, wig or remote. By default it is guessed from the path")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("query takes one pathname argument, but got %v", argv)
		}
		if (opts.regions == "") == (opts.bedPath == "") {
			return fmt.Errorf("exactly one of -region and -bed must be set")
		}
		if err := setType(&opts.openOpts, *typeFlag); err != nil {
			return err
		}
		return query(vcontext.Background(), env.Stdout, argv[0], opts)
	})
	return cmd
}

func newCmdStats() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "stats",
		Short:    "Print the chromosome bounds and summary statistics of a signal track",
		ArgsName: "path",
	}
	var opts queryOpts
	typeFlag := cmd.Flags.String("type", "", "Track type: bigwig, wig or remote. By default it is guessed from the path")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("stats takes one pathname argument, but got %v", argv)
		}
		if err := setType(&opts.openOpts, *typeFlag); err != nil {
			return err
		}
		return stats(vcontext.Background(), env.Stdout, argv[0], opts.openOpts)
	})
	return cmd
}

func newCmdServe() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "serve",
		Short:    "Serve a signal track over HTTP",
		ArgsName: "path",
	}
	port := cmd.Flags.Int("port", 8080, "Port to listen on")
	host := cmd.Flags.String("host", "", "Host address to bind. By default all interfaces")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("serve takes one pathname argument, but got %v", argv)
		}
		return serve(vcontext.Background(), argv[0], *host+":"+strconv.Itoa(*port))
	})
	return cmd
}

func newCmdCount() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "count",
		Short:    "Print the number of records in a SAM or BAM file",
		ArgsName: "path",
	}
	opts := samOpts{}
	cmd.Flags.StringVar(&opts.index, "index", "", "Input BAM index filename. By default set to input bampath + .bai")
	cmd.Flags.StringVar(&opts.tempDir, "temp-dir", "", "Directory for temporary converted files (default os.TempDir())")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("count takes one pathname argument, but got %v", argv)
		}
		return count(vcontext.Background(), env.Stdout, argv[0], opts)
	})
	return cmd
}

func newCmdView() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "view",
		Short:    "Print records of a SAM or BAM file in SAM format",
		ArgsName: "path",
	}
	opts := samOpts{}
	cmd.Flags.StringVar(&opts.index, "index", "", "Input BAM index filename. By default set to input bampath + .bai")
	cmd.Flags.StringVar(&opts.tempDir, "temp-dir", "", "Directory for temporary converted files (default os.TempDir())")
	cmd.Flags.StringVar(&opts.region, "region", "", `Show only reads overlapping the region 'chr:start-stop', 1-based and closed.
Reads are then shown in coordinate order.  By default every record is shown
in file order.`)
	cmd.Flags.BoolVar(&opts.withHeader, "with-header", false, "Print header before body")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("view takes one pathname argument, but got %v", argv)
		}
		return view(vcontext.Background(), env.Stdout, argv[0], opts)
	})
	return cmd
}

// Run parses the command line and runs the selected subcommand.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-signal",
			Short:    "Tools for querying signal tracks and alignment files",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdQuery(),
				newCmdStats(),
				newCmdServe(),
				newCmdCount(),
				newCmdView(),
			},
		})
}
