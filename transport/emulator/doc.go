// Package emulator provides an in-process SiLo tag and a transport that presents it.
//
// A Tag holds 1 KiB of page memory laid out like the real part and carries three
// P-256 keys: the primary key that signs external challenges, the secondary key that
// signs internal random numbers, and the provisioning key exposed by commands 0x55
// and 0x56. Writing a complete challenge record to page 0xB0 makes the tag sign it
// and fill the output and diagnostic regions.
//
// Faults can be injected per page to exercise workflow error paths.
package emulator
