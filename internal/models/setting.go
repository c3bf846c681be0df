package models

// SettingItem is a key/value row in the Settings sheet.
type SettingItem struct {
	Key   string `json:"key" mapstructure:"key"`
	Value string `json:"value" mapstructure:"value"`
}

// Certificate background storage keys.
const (
	CertBackgroundKey         = "certBg"
	CertBackgroundChunkPrefix = "certBg_chunk"
	CertBackgroundChunkSize   = 45000
)

// UpdateSettingRequest sets a single setting value.
type UpdateSettingRequest struct {
	Value string `json:"value"`
}

// CertificateBackgroundRequest replaces the certificate background image.
type CertificateBackgroundRequest struct {
	DataURL string `json:"dataUrl"`
}

// CertificateBackgroundResponse carries the reassembled background, if any.
type CertificateBackgroundResponse struct {
	DataURL string `json:"dataUrl"`
	Present bool   `json:"present"`
}
