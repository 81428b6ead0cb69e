package services

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// DocumentStore persists rendered documents and returns an opaque,
// later-retrievable location for each.
type DocumentStore interface {
	Write(filename string, data []byte) (string, error)
}

// CertificateRenderer produces the completion certificate document for a
// learner/course pair and stores it. Rendering itself never fails: a
// missing branding asset degrades to a plain certificate. Only the storage
// write is fatal.
type CertificateRenderer struct {
	store       DocumentStore
	brandingDir string
}

// NewCertificateRenderer builds a renderer. brandingDir may point at a
// directory that does not exist; certificates are then rendered without a
// logo.
func NewCertificateRenderer(store DocumentStore, brandingDir string) *CertificateRenderer {
	return &CertificateRenderer{store: store, brandingDir: brandingDir}
}

// Render generates the certificate document and writes it to the document
// store, returning its location. A storage failure surfaces as
// ErrRenderingFailed.
func (r *CertificateRenderer) Render(learnerName, courseTitle, certificateNumber string, issuedAt time.Time) (string, error) {
	doc := r.renderHTML(learnerName, courseTitle, certificateNumber, issuedAt)

	filename := certificateNumber + ".html"
	location, err := r.store.Write(filename, []byte(doc))
	if err != nil {
		return "", fmt.Errorf("%w: store certificate %s: %v", ErrRenderingFailed, certificateNumber, err)
	}
	return location, nil
}

// renderHTML builds the certificate markup. The logo block is optional.
func (r *CertificateRenderer) renderHTML(learnerName, courseTitle, certificateNumber string, issuedAt time.Time) string {
	logoBlock := ""
	if logo, ok := r.loadLogo(); ok {
		logoBlock = fmt.Sprintf(`<img class="logo" src="data:image/png;base64,%s" alt="LearnHub" />`, logo)
	}

	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.certificate { max-width: 800px; margin: 40px auto; background: #FFFFFF; border: 8px solid #00004D; padding: 60px; text-align: center; }
			.logo { max-height: 80px; margin-bottom: 20px; }
			.title { color: #00004D; font-size: 32px; letter-spacing: 2px; margin-bottom: 10px; }
			.name { color: #d7b56d; font-size: 40px; margin: 30px 0; }
			.course { color: #00004D; font-size: 24px; font-weight: bold; }
			.meta { margin-top: 40px; font-size: 14px; color: #666666; }
		</style>
	</head>
	<body>
		<div class="certificate">
			%s
			<div class="title">CERTIFICATE OF COMPLETION</div>
			<p>This is to certify that</p>
			<div class="name">%s</div>
			<p>has successfully completed the course</p>
			<div class="course">%s</div>
			<div class="meta">
				Certificate No: %s<br>
				Issued on %s
			</div>
		</div>
	</body>
	</html>
	`, logoBlock, learnerName, courseTitle, certificateNumber, issuedAt.Format("02 January 2006"))
}

// loadLogo reads the optional branding logo. Absence is a normal case.
func (r *CertificateRenderer) loadLogo() (string, bool) {
	if r.brandingDir == "" {
		return "", false
	}
	data, err := os.ReadFile(filepath.Join(r.brandingDir, "logo.png"))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[RENDERER] Skipping branding logo: %v", err)
		}
		return "", false
	}
	return base64.StdEncoding.EncodeToString(data), true
}
