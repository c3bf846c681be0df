package models

// CertificateFormat is the output encoding of a certificate.
type CertificateFormat string

const (
	CertificatePNG CertificateFormat = "png"
	CertificatePDF CertificateFormat = "pdf"
)

// RenderedFile is a downloadable artifact.
type RenderedFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
