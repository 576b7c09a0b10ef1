package command

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/8090Lambert/tree-new-bee/boot"
	"github.com/8090Lambert/tree-new-bee/generator"
	"github.com/8090Lambert/tree-new-bee/metrics"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	RdbFile      string
	Output       string
	GenFileType  string
	Summary      bool
	SkipChecksum bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Decode an rdb file into json or csv",
	Long: `Decode an rdb file and write every key to <output>/<rdb-name>.<type>.

Example:
  bee dump --rdb ./dump.rdb --type json -o /tmp --summary`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if RdbFile == "" {
			return errors.New("--rdb is required")
		}
		if _, err := os.Stat(RdbFile); err != nil {
			return errors.Wrapf(err, "rdb file %s", RdbFile)
		}
		format, err := generator.ParseFormat(GenFileType)
		if err != nil {
			return err
		}
		log, err := newLogger("")
		if err != nil {
			return err
		}

		opts := boot.DumpOptions{File: RdbFile, Format: format, SkipChecksum: SkipChecksum}
		if Summary {
			opts.Report = cmd.OutOrStdout()
		}
		if Output == "-" {
			opts.Out = cmd.OutOrStdout()
			return boot.Dump(context.Background(), opts, log, metrics.New())
		}
		f, err := os.Create(outputPath(RdbFile, Output, format))
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		return writeAndClose(f, func(w io.Writer) error {
			opts.Out = w
			return boot.Dump(context.Background(), opts, log, metrics.New())
		})
	},
}

// writeAndClose runs write against w and closes it. A failed close is
// reported unless write already failed.
func writeAndClose(w io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close output")
		}
	}()
	return write(w)
}

// outputPath puts dump.rdb into dir/dump.json for the json format.
func outputPath(rdbFile, dir string, format generator.Format) string {
	name := strings.TrimSuffix(filepath.Base(rdbFile), filepath.Ext(rdbFile)) + format.Extension()
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVarP(&Output, "output", "o", "", "set the output directory for gen-file, - for stdout. (default: current directory)")
	dumpCmd.Flags().StringVar(&GenFileType, "type", "", "set the gen-file's type, support type: json, csv. json writes non UTF-8 strings as {\"base64\": ...} (default: csv)")
	dumpCmd.Flags().StringVar(&RdbFile, "rdb", "", "<rdb-file-name>. For example: ./dump.rdb")
	dumpCmd.Flags().BoolVar(&Summary, "summary", false, "print the biggest keys of each type")
	dumpCmd.Flags().BoolVar(&SkipChecksum, "skip-checksum", false, "do not verify the trailing CRC64")
}
