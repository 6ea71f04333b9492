package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/appflow"
	"github.com/aniload/aniload/internal/batch"
	"github.com/aniload/aniload/internal/scraper"
	"github.com/aniload/aniload/internal/tracking"
	"github.com/aniload/aniload/internal/util"
	"github.com/aniload/aniload/internal/version"
)

// downloadRoot is the fixed directory tree for downloaded episodes, one
// subdirectory per series.
const downloadRoot = "Downloads"

func main() {
	startFlag := flag.Int("start", 0, "first episode number to download")
	endFlag := flag.Int("end", 0, "last episode number to download")
	pickFlag := flag.Bool("pick", false, "pick a single episode interactively")
	debugFlag := flag.Bool("debug", false, "enable debug mode")
	versionFlag := flag.Bool("version", false, "show version information")
	helpFlag := flag.Bool("help", false, "show help message")
	altHelpFlag := flag.Bool("h", false, "show help message")

	flag.Parse()

	// flag stops at the first positional, so in the documented
	// `aniload <series_url> -start N -end N` order the range flags land
	// in flag.Args(). Re-parse them instead of dropping them.
	args, err := reparseTrailingFlags(flag.CommandLine, flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *versionFlag || version.HasVersionArg() {
		version.ShowVersion()
		return
	}

	if *helpFlag || *altHelpFlag {
		util.Helper()
		return
	}

	util.SetDebugMode(*debugFlag)
	util.InitLogger()

	tracker := openTracker()
	if tracker != nil {
		defer func() {
			if err := tracker.Close(); err != nil {
				util.Debugf("failed to close download history: %v", err)
			}
		}()
	}

	var start, end *int
	if *startFlag > 0 {
		start = startFlag
	}
	if *endFlag > 0 {
		end = endFlag
	}

	if len(args) > 0 {
		runSingle(args[0], start, end, *pickFlag, tracker)
		return
	}
	runBatch(tracker)
}

// reparseTrailingFlags feeds everything after the first positional
// argument back through the flag set, so flags may follow the series
// URL. Leftover positionals are an error, never silently dropped.
func reparseTrailingFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	if len(args) <= 1 {
		return args, nil
	}
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return nil, errors.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}
	return args[:1], nil
}

// runSingle handles `aniload <series_url> [-start N] [-end N] [-pick]`.
// Invalid URLs and invalid ranges are fatal; episode failures are logged
// by the pipeline and leave the exit code at zero.
func runSingle(seriesURL string, start, end *int, pick bool, tracker *tracking.LocalTracker) {
	var err error
	if pick {
		err = appflow.RunSeriesPick(downloadRoot, tracker, seriesURL)
	} else {
		err = appflow.RunSeries(downloadRoot, tracker, seriesURL, start, end, 0, 0)
	}
	if err != nil {
		util.Logger.Fatal(util.ErrorHandler(err))
	}
}

// runBatch handles `aniload` without arguments: series URLs come from
// URLs.txt, one per line, processed sequentially. When the file is
// missing the user is prompted for a single URL instead.
func runBatch(tracker *tracking.LocalTracker) {
	urls, err := batch.ReadURLFile(batch.URLFile)
	haveFile := err == nil
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			util.Logger.Fatal(util.ErrorHandler(err))
		}
		url, promptErr := promptSeriesURL()
		if promptErr != nil {
			util.Logger.Fatal(util.ErrorHandler(promptErr))
		}
		urls = []string{url}
	}

	if len(urls) == 0 {
		util.Infof("%s is empty, nothing to download", batch.URLFile)
		return
	}

	failed := batch.Run(urls, func(url string, index, total int) error {
		return appflow.RunSeries(downloadRoot, tracker, url, nil, nil, index, total)
	})

	if haveFile {
		if err := batch.ClearURLFile(batch.URLFile); err != nil {
			util.Warnf("%v", err)
		}
	}
	if failed > 0 {
		util.Warnf("%d of %d series failed", failed, len(urls))
	}
}

// promptSeriesURL asks for a series URL when no URLs.txt exists.
func promptSeriesURL() (string, error) {
	prompt := promptui.Prompt{
		Label: "Series URL",
		Validate: func(input string) error {
			_, err := scraper.SeriesSlug(input)
			return err
		},
	}
	return prompt.Run()
}

// openTracker opens the local download history. History is best effort:
// when the database cannot be opened, downloads proceed without it.
func openTracker() *tracking.LocalTracker {
	home, err := os.UserHomeDir()
	if err != nil {
		util.Debugf("no home directory, download history disabled: %v", err)
		return nil
	}
	dbPath := filepath.Join(home, ".local", "share", "aniload", "history.db")
	tracker, err := tracking.NewLocalTracker(dbPath)
	if err != nil {
		util.Debugf("download history disabled: %v", err)
		return nil
	}
	return tracker
}
