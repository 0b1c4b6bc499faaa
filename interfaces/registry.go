package interfaces

// DeviceRegistryEntry is one entry of the read-only device registry file.
type DeviceRegistryEntry struct {
	PrimaryPublicKeyHash string `json:"primaryPublicKeyHash"`
	Name                 string `json:"name,omitempty"`
	POAP                 string `json:"poap,omitempty"`
	Image                string `json:"image,omitempty"`
}

// Display renders the side effects of a registry match. None of them affect
// provisioning.
type Display interface {
	ShowName(name string)
	ShowPOAP(payload string) error
	OpenImage(path string) error
}
