// Package cli implements the hostwatch command-line interface.
//
// Every command is a cobra.Command registered from its file's init. Commands
// build their dependencies through loadApp, which loads the config and wires
// the credential store, the ssh executor, the prober and, when alerts are
// wanted, the notification sinks.
//
// # Command Structure
//
//	hostwatch watch [target...]        - Poll continuously, alert, serve metrics
//	hostwatch check [target...]        - Poll once and print the result
//	hostwatch latency [target...]      - Ping targets from this machine
//	hostwatch secret set-password|set-key|clear <target>
//	hostwatch container ls|restart|start <target> [name]
//	hostwatch alerts [prune]           - Read the alert journal
//	hostwatch target list|enable|disable|remove
//	hostwatch doctor [--fix]           - Diagnose config, tools and secrets
//
// # Output
//
// Human output uses the ui package. Commands with --json write a
// JSONEnvelope so scripts get the same shape everywhere, including for
// errors.
//
// # Exit Codes
//
// check returns an ExitError with status 1 when a target is unreachable;
// every other failure exits 1 after printing the error.
package cli
