// Package wire builds the outbound shared-contact representation attached to
// a message in flight. The wire taxonomy reuses the local category names but
// is a distinct set of types; mapping between the two is explicit, and any
// unrecognized local type deliberately collapses to CUSTOM.
package wire

import (
	"context"
	"io"
	"log"

	"contactshare/internal/domain"
	"contactshare/internal/repository/attachment"
)

// PhoneType is the wire taxonomy for phone numbers.
type PhoneType string

// EmailType is the wire taxonomy for email addresses.
type EmailType string

// AddressType is the wire taxonomy for postal addresses.
type AddressType string

const (
	PhoneHome   PhoneType = "HOME"
	PhoneMobile PhoneType = "MOBILE"
	PhoneWork   PhoneType = "WORK"
	PhoneCustom PhoneType = "CUSTOM"

	EmailHome   EmailType = "HOME"
	EmailMobile EmailType = "MOBILE"
	EmailWork   EmailType = "WORK"
	EmailCustom EmailType = "CUSTOM"

	AddressHome   AddressType = "HOME"
	AddressWork   AddressType = "WORK"
	AddressCustom AddressType = "CUSTOM"
)

// Name is the outbound name structure.
type Name struct {
	Display string `json:"display,omitempty"`
	Given   string `json:"given,omitempty"`
	Family  string `json:"family,omitempty"`
	Prefix  string `json:"prefix,omitempty"`
	Suffix  string `json:"suffix,omitempty"`
	Middle  string `json:"middle,omitempty"`
}

// Phone is an outbound phone entry.
type Phone struct {
	Value string    `json:"value"`
	Type  PhoneType `json:"type"`
	Label string    `json:"label,omitempty"`
}

// Email is an outbound email entry.
type Email struct {
	Value string    `json:"value"`
	Type  EmailType `json:"type"`
	Label string    `json:"label,omitempty"`
}

// PostalAddress is an outbound postal address entry.
type PostalAddress struct {
	Type         AddressType `json:"type"`
	Label        string      `json:"label,omitempty"`
	Street       string      `json:"street,omitempty"`
	PoBox        string      `json:"pobox,omitempty"`
	Neighborhood string      `json:"neighborhood,omitempty"`
	City         string      `json:"city,omitempty"`
	Region       string      `json:"region,omitempty"`
	Postcode     string      `json:"postcode,omitempty"`
	Country      string      `json:"country,omitempty"`
}

// Avatar carries the resolved avatar bytes with their metadata.
type Avatar struct {
	Data        []byte `json:"data"`
	Length      int64  `json:"length"`
	ContentType string `json:"contentType"`
	IsProfile   bool   `json:"isProfile"`
}

// SharedContact is one contact as transmitted to a peer.
type SharedContact struct {
	Name            Name            `json:"name"`
	Organization    string          `json:"organization,omitempty"`
	Phones          []Phone         `json:"phone,omitempty"`
	Emails          []Email         `json:"email,omitempty"`
	PostalAddresses []PostalAddress `json:"address,omitempty"`
	Avatar          *Avatar         `json:"avatar,omitempty"`
}

// Payload is the shared-contact section of an outbound message. A message
// with no contacts has no Payload at all, which is distinct from a payload
// with an empty list.
type Payload struct {
	SharedContacts []SharedContact `json:"sharedContacts"`
}

// MapPhoneType converts a local phone type to the wire taxonomy. Unknown
// types map to CUSTOM; the mapping is intentionally lossy rather than an
// error.
func MapPhoneType(t domain.PhoneType) PhoneType {
	switch t {
	case domain.PhoneHome:
		return PhoneHome
	case domain.PhoneMobile:
		return PhoneMobile
	case domain.PhoneWork:
		return PhoneWork
	default:
		return PhoneCustom
	}
}

// MapEmailType converts a local email type to the wire taxonomy, defaulting
// to CUSTOM.
func MapEmailType(t domain.EmailType) EmailType {
	switch t {
	case domain.EmailHome:
		return EmailHome
	case domain.EmailMobile:
		return EmailMobile
	case domain.EmailWork:
		return EmailWork
	default:
		return EmailCustom
	}
}

// MapAddressType converts a local postal address type to the wire taxonomy,
// defaulting to CUSTOM.
func MapAddressType(t domain.AddressType) AddressType {
	switch t {
	case domain.AddressHome:
		return AddressHome
	case domain.AddressWork:
		return AddressWork
	default:
		return AddressCustom
	}
}

// Mapper turns contacts into their outbound form, resolving avatar bytes
// through the attachment store.
type Mapper struct {
	store  attachment.Store
	logger *log.Logger
}

// NewMapper builds a Mapper. A nil logger discards output.
func NewMapper(store attachment.Store, logger *log.Logger) *Mapper {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Mapper{store: store, logger: logger}
}

// Contacts maps the contacts attached to an outgoing message. A nil result
// means the message carries no contacts and the field should be omitted
// entirely. An avatar whose bytes cannot be read is dropped from its contact
// and logged; the contact itself is still transmitted.
func (m *Mapper) Contacts(ctx context.Context, contacts []domain.Contact) *Payload {
	if len(contacts) == 0 {
		return nil
	}

	shared := make([]SharedContact, 0, len(contacts))
	for _, c := range contacts {
		sc := SharedContact{
			Name: Name{
				Display: c.Name.DisplayName,
				Given:   c.Name.GivenName,
				Family:  c.Name.FamilyName,
				Prefix:  c.Name.Prefix,
				Suffix:  c.Name.Suffix,
				Middle:  c.Name.MiddleName,
			},
			Organization: c.Organization,
		}

		for _, p := range c.Phones {
			sc.Phones = append(sc.Phones, Phone{Value: p.Number, Type: MapPhoneType(p.Type), Label: p.Label})
		}
		for _, e := range c.Emails {
			sc.Emails = append(sc.Emails, Email{Value: e.Address, Type: MapEmailType(e.Type), Label: e.Label})
		}
		for _, a := range c.PostalAddresses {
			sc.PostalAddresses = append(sc.PostalAddresses, PostalAddress{
				Type:         MapAddressType(a.Type),
				Label:        a.Label,
				Street:       a.Street,
				PoBox:        a.PoBox,
				Neighborhood: a.Neighborhood,
				City:         a.City,
				Region:       a.Region,
				Postcode:     a.PostalCode,
				Country:      a.Country,
			})
		}

		if c.Avatar != nil && c.Avatar.AttachmentID != "" {
			if avatar, err := m.resolveAvatar(ctx, c.Avatar); err != nil {
				m.logger.Printf("wire: dropping avatar %s for %q: %v", c.Avatar.AttachmentID, c.DisplayName(), err)
			} else {
				sc.Avatar = avatar
			}
		}

		shared = append(shared, sc)
	}

	return &Payload{SharedContacts: shared}
}

func (m *Mapper) resolveAvatar(ctx context.Context, av *domain.Avatar) (*Avatar, error) {
	stream, meta, err := m.store.Open(ctx, av.AttachmentID)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	return &Avatar{
		Data:        data,
		Length:      meta.Size,
		ContentType: meta.ContentType,
		IsProfile:   av.IsProfile,
	}, nil
}
