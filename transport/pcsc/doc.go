// Package pcsc connects the provisioner to PC/SC contactless readers.
//
// Tag memory is accessed with the reader's pseudo-APDUs:
//
//	FF B0 00 <page> <len>      read binary
//	FF D6 00 <page> 04 <data>  update binary, one 4-byte page per command
//
// Both expect status word 90 00. The transport polls reader state changes and
// reports attach, removal, and card presence as interfaces.ReaderEvent values.
package pcsc
