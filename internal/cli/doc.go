// Package cli wires together the Cobra command tree for the phabmd binary.
//
// It defines the root command and all subcommands (extract, auth, config,
// version), binds flags, reads configuration, builds the Conduit and web UI
// clients, runs the extraction engine, and returns deterministic exit codes.
package cli
