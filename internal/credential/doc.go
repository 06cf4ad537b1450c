// Package credential keeps target secrets encrypted at rest and materializes
// private keys on disk only for the lifetime of a remote session.
//
// Secrets are sealed with AES-256-GCM under a process key stored in its own
// file (see LoadOrCreateKey). The encrypted blob is base64 of nonce followed
// by the sealed ciphertext and tag, so nothing besides the key needs to be
// stored alongside it. Losing the key file makes every stored credential
// unrecoverable.
package credential
