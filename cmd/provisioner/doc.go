// Package main (cmd/provisioner) is the operator tool for SiLo tags.
//
// The scan command listens on every attached PC/SC reader and runs the
// provisioning workflow on each tag presented: it reads the tag, writes a
// challenge, verifies the signature the secure element produced and, when
// asked, saves, exports or promotes the tag's attestation record.
//
// Example export run that saves the record of a single tag:
//
//	silo-provisioner scan --command 56 --json --scan-once --data-dir ./records
//
// verify-signature checks a signature offline, and match renders a registry
// entry for a known key hash.
package main
