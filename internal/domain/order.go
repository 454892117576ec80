package domain

import (
	"strings"
	"time"
)

// OrderType is the category an action belongs to. Fingerprints are
// namespaced by it, so the two categories never collide in the ledgers.
type OrderType string

const (
	TypeExecutiveOrder OrderType = "executive_order"
	TypeProclamation   OrderType = "proclamation"
)

// Label returns the human-readable form used in titles and descriptions.
func (t OrderType) Label() string {
	if t == TypeProclamation {
		return "Proclamation"
	}
	return "Executive Order"
}

// Order is a core entity describing one presidential action found upstream.
type Order struct {
	ID          string
	Number      string
	Title       string
	Type        OrderType
	URL         string
	PublishedAt time.Time
	BodyText    string
}

// Fingerprint returns the identity persisted in the state store.
func (o Order) Fingerprint() Fingerprint {
	return NewFingerprint(o.Type, o.ID)
}

// Fingerprint identifies one item within one category, for example
// "executive_order:presidential-actions-2025-restoring-accountability".
type Fingerprint string

// NewFingerprint builds the canonical category-namespaced identity.
func NewFingerprint(t OrderType, id string) Fingerprint {
	return Fingerprint(string(t) + ":" + id)
}

// Category returns the order-type prefix of the fingerprint.
func (f Fingerprint) Category() string {
	if i := strings.IndexByte(string(f), ':'); i >= 0 {
		return string(f)[:i]
	}
	return ""
}

// ItemID returns the per-category identifier part of the fingerprint.
func (f Fingerprint) ItemID() string {
	if i := strings.IndexByte(string(f), ':'); i >= 0 {
		return string(f)[i+1:]
	}
	return string(f)
}

// Metadata is the document record that accompanies a rendered artifact.
type Metadata struct {
	Title       string
	Source      string
	Description string
	Language    string
	OrderID     string
	OrderNumber string
	OrderType   OrderType
	SourceURL   string
	CapturedAt  time.Time
}

// Artifact is a rendered document ready for upload.
type Artifact struct {
	Content     []byte
	ContentType string
	Meta        Metadata
}

// DocumentRef points at the uploaded primary document.
type DocumentRef struct {
	ID           string
	CanonicalURL string
}
