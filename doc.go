// Package ferry moves files between a local machine and remote FTP, FTPS and
// SFTP servers using named connection profiles.
//
// A [Client] ties together a profile [Store], a [SessionFactory] that opens
// one transport session per logical operation, and the transfer engines built
// on top of it: single-file [Client.Upload] and [Client.Download], the
// concurrent batch uploader [Client.UploadDir], the recursive
// [Client.DownloadDir], and the one-way push of [Client.Sync] and
// [Client.Watch].
//
// # Drivers
//
// Transports are registered per [Protocol] by importing a driver package for
// its side effects:
//
//   - FTP and FTPS (github.com/gobeaver/ferry/driver/ftp)
//   - SFTP (github.com/gobeaver/ferry/driver/sftp)
//   - In-memory remote for tests (github.com/gobeaver/ferry/driver/memory)
//
// A client can override the registered driver with [WithDriver].
//
// # Basic Usage
//
//	import _ "github.com/gobeaver/ferry/driver/sftp"
//
//	c, err := ferry.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = c.Store().Add("prod", ferry.Profile{
//	    Host:       "sftp.example.com",
//	    Username:   "deploy",
//	    PrivateKey: "~/.ssh/id_ed25519",
//	    Protocol:   ferry.ProtocolSFTP,
//	})
//
//	ctx := context.Background()
//
//	// Upload a single file
//	res, err := c.Upload(ctx, "prod", "dist/index.html", "/var/www/index.html", ferry.UploadOptions{})
//
//	// Upload a tree with a bounded worker pool and per-file retries
//	res, err = c.UploadDir(ctx, "prod", "dist", "/var/www", nil)
//	fmt.Println(res.Status(), res.Succeeded, res.Failed)
//
//	// Mirror a remote tree over a single session
//	res, err = c.DownloadDir(ctx, "prod", "/var/log/app", "logs", nil)
//
// # Sync
//
// [Client.Sync] pushes every file below a local root that is not excluded by
// [DefaultIgnorePatterns], the project ignore file (.ferryignore by default)
// or, when that is absent, .gitignore. Nothing is deleted remotely.
// [Client.Watch] runs a sync and then keeps pushing files as they change.
//
// # Profiles
//
// Profiles are kept in a JSON file, ~/.ferry/connections.json by default.
// Passwords are stored obfuscated with a "base64:" prefix. This hides them
// from casual viewing only; it is not encryption.
//
// # Error Handling
//
// Errors wrap sentinel values that can be tested with errors.Is or the
// helper functions:
//
//	_, err := c.Download(ctx, "prod", "/missing.txt", "missing.txt", ferry.DownloadOptions{})
//	switch {
//	case ferry.IsNotFound(err):
//	    // unknown profile
//	case ferry.IsTimeout(err):
//	    // connect deadline passed
//	case errors.Is(err, ferry.ErrTransfer):
//	    // the remote operation failed
//	}
//
// Batch operations never fail as a whole because of a single file. Per-file
// failures are counted in [Result] and combined by [Result.Err].
//
// # Configuration
//
// Clients can be configured via environment variables with the BEAVER_FERRY_
// prefix, or programmatically via the [Config] struct:
//
//	cfg := ferry.DefaultConfig()
//	cfg.Concurrency = 10
//	cfg.Retries = 5
//	c, err := ferry.New(cfg)
package ferry
