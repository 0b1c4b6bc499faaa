// Package registry matches provisioned tags against a read-only device registry file.
//
// The registry is a JSON array of entries keyed by the 0x-prefixed SHA-256 of a
// tag's primary public key:
//
//	[
//	  // conference badge
//	  {"primaryPublicKeyHash": "0x...", "name": "Badge", "poap": "https://...", "image": "./badge.png"},
//	]
//
// Comments and trailing commas are accepted. A missing or unparsable registry
// loads as empty so that provisioning continues without matching.
//
// On a match, a Matcher hands the entry to a Display: the name is logged, the
// proof-of-attendance payload is rendered as a terminal QR code, and the image
// is opened with the system viewer.
package registry
