// Package session runs one interactive OS fingerprinting session.
//
// Overview
// A Session owns the list of targets and their fingerprints for the whole
// run. Collaborators are reached through narrow interfaces: a Resolver
// turns operator input into addresses, a Scanner executes nmap and the
// console renders prompts and results.
//
// Data flow:
//
//	operator -> Resolver -> []Target -> Scanner -> []ScanOutcome
//	                                                    |
//	console <- []Fingerprint <- fingerprint.Classify <--+
//
// Invariants:
//   - Only resolved addresses enter the target list.
//   - Targets are scanned and reported in the order they were entered.
//   - Scanner is never called without targets.
//   - A failed or timed out scan of one target is a result, not an error.
//   - Only cancellation of the context (operator interrupt) or a failure
//     to talk to the operator aborts the session.
package session
