// Package codec converts contacts to and from the JSON text form used for
// message attachments and for handing contacts between processes. Decoding is
// strict: a document missing a required field or naming an unknown type is
// rejected rather than partially decoded.
package codec

import (
	"encoding/json"
	"fmt"

	"contactshare/internal/domain"
)

// DecodeError reports a malformed contact document.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode contact: field %q: %s", e.Field, e.Reason)
}

type nameDoc struct {
	DisplayName string `json:"displayName"`
	GivenName   string `json:"givenName"`
	FamilyName  string `json:"familyName"`
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
	MiddleName  string `json:"middleName"`
}

type phoneDoc struct {
	Number string `json:"number"`
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
}

type emailDoc struct {
	Address string `json:"email"`
	Type    string `json:"type"`
	Label   string `json:"label,omitempty"`
}

type postalAddressDoc struct {
	Type         string `json:"type"`
	Label        string `json:"label,omitempty"`
	Street       string `json:"street,omitempty"`
	PoBox        string `json:"poBox,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`
}

type avatarDoc struct {
	IsProfile bool `json:"isProfile"`
}

type contactDoc struct {
	Name            *nameDoc           `json:"name"`
	Organization    string             `json:"organization,omitempty"`
	Phones          []phoneDoc         `json:"phoneNumbers"`
	Emails          []emailDoc         `json:"emails"`
	PostalAddresses []postalAddressDoc `json:"postalAddresses"`
	Avatar          *avatarDoc         `json:"avatar,omitempty"`
}

// Encode renders a contact as its persisted text form. Avatar image bytes are
// never embedded; only the isProfile flag travels with the document.
func Encode(c domain.Contact) ([]byte, error) {
	doc := contactDoc{
		Name: &nameDoc{
			DisplayName: c.Name.DisplayName,
			GivenName:   c.Name.GivenName,
			FamilyName:  c.Name.FamilyName,
			Prefix:      c.Name.Prefix,
			Suffix:      c.Name.Suffix,
			MiddleName:  c.Name.MiddleName,
		},
		Organization:    c.Organization,
		Phones:          make([]phoneDoc, 0, len(c.Phones)),
		Emails:          make([]emailDoc, 0, len(c.Emails)),
		PostalAddresses: make([]postalAddressDoc, 0, len(c.PostalAddresses)),
	}

	for _, p := range c.Phones {
		doc.Phones = append(doc.Phones, phoneDoc{Number: p.Number, Type: string(p.Type), Label: p.Label})
	}
	for _, e := range c.Emails {
		doc.Emails = append(doc.Emails, emailDoc{Address: e.Address, Type: string(e.Type), Label: e.Label})
	}
	for _, a := range c.PostalAddresses {
		doc.PostalAddresses = append(doc.PostalAddresses, postalAddressDoc{
			Type:         string(a.Type),
			Label:        a.Label,
			Street:       a.Street,
			PoBox:        a.PoBox,
			Neighborhood: a.Neighborhood,
			City:         a.City,
			Region:       a.Region,
			PostalCode:   a.PostalCode,
			Country:      a.Country,
		})
	}
	if c.Avatar != nil {
		doc.Avatar = &avatarDoc{IsProfile: c.Avatar.IsProfile}
	}

	return json.Marshal(doc)
}

// Decode parses the persisted text form back into a contact. The avatar image
// is supplied out-of-band: avatarID names the attachment holding its bytes. An
// absent avatar key yields no avatar even when avatarID is set, and an avatar
// key with no avatarID yields no avatar since there are no bytes to attach.
func Decode(data []byte, avatarID string) (domain.Contact, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Contact{}, &DecodeError{Field: "", Reason: err.Error()}
	}
	for _, field := range []string{"name", "phoneNumbers", "emails", "postalAddresses"} {
		if _, ok := raw[field]; !ok {
			return domain.Contact{}, &DecodeError{Field: field, Reason: "missing"}
		}
	}

	var doc contactDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Contact{}, &DecodeError{Field: "", Reason: err.Error()}
	}
	if doc.Name == nil {
		return domain.Contact{}, &DecodeError{Field: "name", Reason: "not an object"}
	}

	phones := make([]domain.Phone, 0, len(doc.Phones))
	for i, p := range doc.Phones {
		t := domain.PhoneType(p.Type)
		if !t.Valid() {
			return domain.Contact{}, &DecodeError{Field: fmt.Sprintf("phoneNumbers[%d].type", i), Reason: fmt.Sprintf("unknown type %q", p.Type)}
		}
		phones = append(phones, domain.Phone{Number: p.Number, Type: t, Label: p.Label})
	}

	emails := make([]domain.Email, 0, len(doc.Emails))
	for i, e := range doc.Emails {
		t := domain.EmailType(e.Type)
		if !t.Valid() {
			return domain.Contact{}, &DecodeError{Field: fmt.Sprintf("emails[%d].type", i), Reason: fmt.Sprintf("unknown type %q", e.Type)}
		}
		emails = append(emails, domain.Email{Address: e.Address, Type: t, Label: e.Label})
	}

	addresses := make([]domain.PostalAddress, 0, len(doc.PostalAddresses))
	for i, a := range doc.PostalAddresses {
		t := domain.AddressType(a.Type)
		if !t.Valid() {
			return domain.Contact{}, &DecodeError{Field: fmt.Sprintf("postalAddresses[%d].type", i), Reason: fmt.Sprintf("unknown type %q", a.Type)}
		}
		addresses = append(addresses, domain.PostalAddress{
			Type:         t,
			Label:        a.Label,
			Street:       a.Street,
			PoBox:        a.PoBox,
			Neighborhood: a.Neighborhood,
			City:         a.City,
			Region:       a.Region,
			PostalCode:   a.PostalCode,
			Country:      a.Country,
		})
	}

	var avatar *domain.Avatar
	if doc.Avatar != nil && avatarID != "" {
		avatar = &domain.Avatar{AttachmentID: avatarID, IsProfile: doc.Avatar.IsProfile}
	}

	name := domain.Name{
		DisplayName: doc.Name.DisplayName,
		GivenName:   doc.Name.GivenName,
		FamilyName:  doc.Name.FamilyName,
		Prefix:      doc.Name.Prefix,
		Suffix:      doc.Name.Suffix,
		MiddleName:  doc.Name.MiddleName,
	}

	return domain.NewContact(name, doc.Organization, phones, emails, addresses, avatar), nil
}
