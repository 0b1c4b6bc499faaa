package tagcodec

const (
	PageSize = 4

	// ConfigPage is read and logged before the static region.
	ConfigPage byte = 0xE8

	StaticFirstPage byte = 0x00
	StaticPageCount      = 0x63
	// TagCapacity is the length of a complete static region read.
	TagCapacity = StaticPageCount * PageSize

	OutputFirstPage byte = 0x64
	OutputPageCount      = 0xA5 - 0x64
	OutputRegionSize     = OutputPageCount * PageSize

	DiagnosticFirstPage byte = 0xAC
	DiagnosticPageCount      = 0xAF - 0xAC
	DiagnosticSize           = DiagnosticPageCount * PageSize

	WriteRecordPage  byte = 0xB0
	ConfirmationPage byte = 0xCB

	// SuccessMarker is the diagnostic text of a tag that accepted and signed a challenge.
	SuccessMarker = "Tag written\x00"
)

// Static region field layout. Offsets are in bytes from page 0x00.
const (
	hardwareRevisionOffset = 70
	hardwareRevisionSize   = 4
	firmwareNumberSize     = 4
	serialNumberSize       = 8
	publicKeySize          = 64
	contractAddressSize    = 20
	nxpI2CSerialSize       = 7
	nxpMCUSerialSize       = 16
	secureElementSerialLen = 9
	configZoneSize         = 128

	// staticMinLength is the end of the config zone, 394 bytes.
	staticMinLength = hardwareRevisionOffset + hardwareRevisionSize + firmwareNumberSize +
		serialNumberSize + 2*publicKeySize + contractAddressSize + nxpI2CSerialSize +
		nxpMCUSerialSize + secureElementSerialLen + configZoneSize
)

// Output region field layout.
const (
	lastHashOffset    = 65
	lastHashSize      = 33
	signatureOffset   = 129
	signatureSize     = 64
	counterSize       = 1
	outputMinLength   = signatureOffset + 2*signatureSize + counterSize
	lastHashToSigSkip = signatureOffset - lastHashOffset - lastHashSize
)
