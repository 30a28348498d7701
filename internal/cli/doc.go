// Package cli implements the statwatch command-line interface.
//
// Each command is a package-level cobra.Command registered in init(), whose
// RunE loads an appContext and hands off to a function taking explicit
// dependencies so it can be tested without the config search or a terminal.
//
// # Command Structure
//
//	statwatch watch              - Live dashboard (tail when not a TTY)
//	statwatch tail               - One log line per snapshot and alert
//	statwatch export             - Collect for a while, write CSV
//	statwatch processes <kind>   - Top processes from the backend
//	statwatch info               - Backend version
//	statwatch version            - Client version
//	statwatch config init|show   - Create or print .statwatch.yaml
//
// watch, tail and export accept --local to sample this machine through the
// same stream pipeline instead of connecting to a backend.
//
// # Flag Handling
//
// Global flags (--config, --server, --verbose, --no-color) are defined on
// the root command. --server overrides server.url after the config file and
// STATWATCH_* environment variables are applied; --verbose forces the debug
// log level.
package cli
