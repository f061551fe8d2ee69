// Package cmd contains the dockupdate command.
//
// The root command reads its flags and DOCKUPDATE_* environment variables, connects to the
// container engine and then performs a single update run, runs on a cron schedule, or serves
// update requests over the HTTP API. The process exit code is 0 after a successful run, 1 after
// any error once the engine was reached, and 2 when the engine could not be reached.
package cmd
