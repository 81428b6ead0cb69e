package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWritesDocument(t *testing.T) {
	store := newMemoryDocStore()
	renderer := NewCertificateRenderer(store, "")

	location, err := renderer.Render("Ada Lovelace", "Advanced Analysis", "CERT-123", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "/certificates/CERT-123.html", location)

	doc := string(store.docs["CERT-123.html"])
	assert.Contains(t, doc, "Ada Lovelace")
	assert.Contains(t, doc, "Advanced Analysis")
	assert.Contains(t, doc, "CERT-123")
}

func TestRenderMissingBrandingDegrades(t *testing.T) {
	store := newMemoryDocStore()
	renderer := NewCertificateRenderer(store, t.TempDir()) // no logo.png inside

	location, err := renderer.Render("Ada Lovelace", "Advanced Analysis", "CERT-456", time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, location)
	assert.NotContains(t, string(store.docs["CERT-456.html"]), "data:image/png")
}

func TestRenderStorageFailureIsFatal(t *testing.T) {
	renderer := NewCertificateRenderer(failingDocStore{}, "")

	_, err := renderer.Render("Ada Lovelace", "Advanced Analysis", "CERT-789", time.Now())
	assert.ErrorIs(t, err, ErrRenderingFailed)
}
