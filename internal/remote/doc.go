// Package remote runs commands on targets by shelling out to the system ssh
// binary.
//
// Every invocation is a single sh command line: an optional sshpass prefix,
// the ssh binary with hardening options, the destination and the remote
// command, with every dynamic segment single-quoted. Sessions own the
// temporary key file materialized for them and remove it on Close, including
// when Connect itself fails.
package remote
