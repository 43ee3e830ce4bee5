// Command ferry manages connection profiles and moves files to and from
// FTP, FTPS and SFTP servers.
//
// Usage:
//
//	ferry add <name> -host h [-port n] -user u [-password p | -key path] [-protocol ftp|ftps|sftp]
//	ferry remove <name>
//	ferry list
//	ferry test <name>
//	ferry upload <name> <local> <remote> [-r] [-dry-run]
//	ferry download <name> <remote> <local> [-r]
//	ferry sync <name> <local> <remote> [-dry-run] [-watch] [-ignore file]
//
// Settings are read from BEAVER_FERRY_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gobeaver/ferry"

	_ "github.com/gobeaver/ferry/driver/ftp"
	_ "github.com/gobeaver/ferry/driver/sftp"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	dim      = color.New(color.Faint).SprintFunc()
)

// errUsage marks errors caused by bad command lines.
var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(ctx context.Context, c *ferry.Client, args []string) error
}

var commands = map[string]command{
	"add":      {"add <name> -host h [-port n] -user u [-password p | -key path] [-protocol ftp|ftps|sftp]", runAdd},
	"remove":   {"remove <name>", runRemove},
	"list":     {"list", runList},
	"test":     {"test <name>", runTest},
	"upload":   {"upload <name> <local> <remote> [-r] [-dry-run]", runUpload},
	"download": {"download <name> <remote> <local> [-r]", runDownload},
	"sync":     {"sync <name> <local> <remote> [-dry-run] [-watch] [-ignore file]", runSync},
}

var commandOrder = []string{"add", "remove", "list", "test", "upload", "download", "sync"}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	client, err := ferry.NewFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "%s %v\n", failMark, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, client, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "usage: ferry %s\n", cmd.usage)
			return 2
		}
		fmt.Fprintf(stderr, "%s %v\n", failMark, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  ferry %s\n", commands[name].usage)
	}
}

// parseArgs parses flags that may appear before, between or after the
// positional arguments, and checks the positional count.
func parseArgs(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	fs.SetOutput(io.Discard)

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}

	if len(positional) != want {
		return nil, errUsage
	}
	return positional, nil
}

func runAdd(ctx context.Context, c *ferry.Client, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	host := fs.String("host", "", "server host name")
	port := fs.Int("port", 0, "server port (default 21, or 22 for sftp)")
	user := fs.String("user", "", "login user name")
	password := fs.String("password", "", "login password")
	key := fs.String("key", "", "private key file for sftp")
	protocol := fs.String("protocol", "ftp", "ftp, ftps or sftp")

	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}

	err = c.Store().Add(pos[0], ferry.Profile{
		Host:       *host,
		Port:       *port,
		Username:   *user,
		Password:   *password,
		PrivateKey: *key,
		Protocol:   ferry.Protocol(*protocol),
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s Added: %s\n", okMark, pos[0])
	return nil
}

func runRemove(ctx context.Context, c *ferry.Client, args []string) error {
	pos, err := parseArgs(flag.NewFlagSet("remove", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}
	if err := c.Store().Remove(pos[0]); err != nil {
		return err
	}
	fmt.Printf("%s Removed: %s\n", okMark, pos[0])
	return nil
}

func runList(ctx context.Context, c *ferry.Client, args []string) error {
	if _, err := parseArgs(flag.NewFlagSet("list", flag.ContinueOnError), args, 0); err != nil {
		return err
	}

	profiles := c.Store().List()
	if len(profiles) == 0 {
		fmt.Println(dim("no profiles in " + c.Store().Path()))
		return nil
	}
	for _, p := range profiles {
		fmt.Printf("%-20s %-6s %s\n", p.Name, p.Protocol, p.Host)
	}
	return nil
}

func runTest(ctx context.Context, c *ferry.Client, args []string) error {
	pos, err := parseArgs(flag.NewFlagSet("test", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}

	res := c.Test(ctx, pos[0])
	if !res.Success {
		return errors.New(res.Error)
	}
	fmt.Printf("%s %s reachable %s\n", okMark, pos[0], dim(res.Latency.Round(1e6)))
	return nil
}

func runUpload(ctx context.Context, c *ferry.Client, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	recursive := fs.Bool("r", false, "upload a directory tree")
	dryRun := fs.Bool("dry-run", false, "only list what would be uploaded")

	pos, err := parseArgs(fs, args, 3)
	if err != nil {
		return err
	}

	res, err := c.Upload(ctx, pos[0], pos[1], pos[2], ferry.UploadOptions{
		Recursive: *recursive,
		DryRun:    *dryRun,
		Progress:  printProgress,
	})
	if err != nil {
		return err
	}
	return report(res)
}

func runDownload(ctx context.Context, c *ferry.Client, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	recursive := fs.Bool("r", false, "download a directory tree")

	pos, err := parseArgs(fs, args, 3)
	if err != nil {
		return err
	}

	res, err := c.Download(ctx, pos[0], pos[1], pos[2], ferry.DownloadOptions{
		Recursive: *recursive,
		Progress:  printProgress,
	})
	if res != nil {
		if rerr := report(res); err == nil {
			err = rerr
		}
	}
	return err
}

func runSync(ctx context.Context, c *ferry.Client, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "only list what would be pushed")
	watch := fs.Bool("watch", false, "keep pushing changes until interrupted")
	ignore := fs.String("ignore", "", "ignore file to use instead of .ferryignore")

	pos, err := parseArgs(fs, args, 3)
	if err != nil {
		return err
	}

	opts := ferry.SyncOptions{DryRun: *dryRun, IgnoreFile: *ignore, Progress: printProgress}
	if *watch {
		fmt.Println(dim("watching " + pos[1] + ", press Ctrl+C to stop"))
		return c.Watch(ctx, pos[0], pos[1], pos[2], ferry.WatchOptions{SyncOptions: opts})
	}

	res, err := c.Sync(ctx, pos[0], pos[1], pos[2], opts)
	if err != nil {
		return err
	}
	return report(res)
}

func printProgress(item ferry.ItemResult, done, total int) {
	counter := dim(fmt.Sprintf("[%d/%d]", done, total))
	if item.Err != nil {
		fmt.Printf("%s %s %s: %v\n", counter, failMark, item.Job.RelPath, item.Err)
		return
	}
	fmt.Printf("%s %s %s\n", counter, okMark, item.Job.RelPath)
}

// report prints the summary line and turns failed items into an error so
// the exit status reflects them.
func report(res *ferry.Result) error {
	switch {
	case res.DryRun:
		for _, f := range res.Files {
			fmt.Printf("  %s\n", f)
		}
		fmt.Printf("%s dry run: %d file(s)\n", okMark, res.Total)
		return nil
	case res.Message != "":
		fmt.Printf("%s %s\n", okMark, res.Message)
		return nil
	}

	fmt.Printf("%s %d/%d transferred, %d failed\n", markFor(res), res.Succeeded, res.Total, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", res.Failed, res.Total)
	}
	return nil
}

func markFor(res *ferry.Result) string {
	if res.Success() {
		return okMark
	}
	return failMark
}
