package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"clipforge/config"
	"clipforge/internal/appdirs"
	"clipforge/internal/deps"
	"clipforge/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Print runtime paths and dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bootstrap(false); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printDiagnose(out)
			report, err := deps.Check(cmd.Context(), config.Conf.Render)
			fmt.Fprintln(out, report.String())
			if err != nil {
				fmt.Fprintf(out, "dependency check: %v\n", err)
			}
			return nil
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(w io.Writer) {
	fmt.Fprintf(w, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	printVersion(w)

	if exePath, err := os.Executable(); err == nil {
		fmt.Fprintf(w, "executable: %s\n", exePath)
	} else {
		fmt.Fprintf(w, "executable: <error: %v>\n", err)
	}

	if configPath, err := config.ResolveConfigPath(); err == nil {
		printPath(w, "config", configPath)
	}
	if logDir, err := log.ResolveLogDir(); err == nil {
		printPath(w, "effective_log_dir", logDir)
	}
	if dirs, err := appdirs.Resolve(); err == nil {
		printPath(w, "database", appdirs.DBPathFor(dirs))
		printPath(w, "blobs", appdirs.BlobRootFor(dirs))
		printPath(w, "work", appdirs.WorkDirFor(dirs, ""))
	} else {
		fmt.Fprintf(w, "path.appdirs: <error: %v>\n", err)
	}
	fmt.Fprintf(w, "queue.backend: %s\n", config.Conf.Queue.Backend)
	fmt.Fprintf(w, "storage.provider: %s\n", config.Conf.Storage.Provider)
	fmt.Fprintf(w, "transcribe.provider: %s\n", config.Conf.Transcribe.Provider)
}

func printPath(w io.Writer, name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Fprintf(w, "path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Fprintf(w, "path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Fprintf(w, "path.%s: %s (error=%v)\n", name, absPath, err)
}
