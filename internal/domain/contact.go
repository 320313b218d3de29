package domain

import "strings"

// PhoneType categorizes a phone number.
type PhoneType string

// EmailType categorizes an email address.
type EmailType string

// AddressType categorizes a postal address. There is no MOBILE postal address.
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

// Valid reports whether t is a known phone type name.
func (t PhoneType) Valid() bool {
	switch t {
	case PhoneHome, PhoneMobile, PhoneWork, PhoneCustom:
		return true
	}
	return false
}

// Valid reports whether t is a known email type name.
func (t EmailType) Valid() bool {
	switch t {
	case EmailHome, EmailMobile, EmailWork, EmailCustom:
		return true
	}
	return false
}

// Valid reports whether t is a known postal address type name.
func (t AddressType) Valid() bool {
	switch t {
	case AddressHome, AddressWork, AddressCustom:
		return true
	}
	return false
}

// Name holds the structured name of a contact. All fields are optional.
type Name struct {
	DisplayName string `json:"displayName"`
	GivenName   string `json:"givenName"`
	FamilyName  string `json:"familyName"`
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
	MiddleName  string `json:"middleName"`
}

// IsEmpty reports whether every name field is blank.
func (n Name) IsEmpty() bool {
	return n.DisplayName == "" &&
		n.GivenName == "" &&
		n.FamilyName == "" &&
		n.Prefix == "" &&
		n.Suffix == "" &&
		n.MiddleName == ""
}

// Phone is a single phone number entry. Number is stored as provided by the
// source; normalization for matching happens in the reconciler. Label is only
// meaningful when Type is CUSTOM.
type Phone struct {
	Number string    `json:"number"`
	Type   PhoneType `json:"type"`
	Label  string    `json:"label,omitempty"`
}

// Email is a single email address entry.
type Email struct {
	Address string    `json:"email"`
	Type    EmailType `json:"type"`
	Label   string    `json:"label,omitempty"`
}

// PostalAddress is a structured postal address entry.
type PostalAddress struct {
	Type         AddressType `json:"type"`
	Label        string      `json:"label,omitempty"`
	Street       string      `json:"street,omitempty"`
	PoBox        string      `json:"poBox,omitempty"`
	Neighborhood string      `json:"neighborhood,omitempty"`
	City         string      `json:"city,omitempty"`
	Region       string      `json:"region,omitempty"`
	PostalCode   string      `json:"postalCode,omitempty"`
	Country      string      `json:"country,omitempty"`
}

// Render produces the canonical multi-line text of the address. Two addresses
// are considered the same address iff their rendered text matches, regardless
// of how the structured fields are split up.
func (p PostalAddress) Render() string {
	var b strings.Builder

	if p.Street != "" {
		b.WriteString(p.Street)
		b.WriteByte('\n')
	}
	if p.PoBox != "" {
		b.WriteString(p.PoBox)
		b.WriteByte('\n')
	}
	if p.Neighborhood != "" {
		b.WriteString(p.Neighborhood)
		b.WriteByte('\n')
	}

	switch {
	case p.City != "" && p.Region != "":
		b.WriteString(p.City)
		b.WriteString(", ")
		b.WriteString(p.Region)
	case p.City != "":
		b.WriteString(p.City)
		b.WriteByte(' ')
	case p.Region != "":
		b.WriteString(p.Region)
		b.WriteByte(' ')
	}

	if p.PostalCode != "" {
		b.WriteString(p.PostalCode)
	}
	if p.Country != "" {
		b.WriteByte('\n')
		b.WriteString(p.Country)
	}

	return strings.TrimSpace(b.String())
}

// Avatar references a contact photo held in the attachment store. The image
// bytes never travel with the model. IsProfile marks photos sourced from the
// sender's profile rather than an explicitly shared image.
type Avatar struct {
	AttachmentID string `json:"attachmentId,omitempty"`
	IsProfile    bool   `json:"isProfile"`
}

// Contact is an immutable snapshot of a shared or stored contact. List fields
// are never nil; callers must not mutate them.
type Contact struct {
	Name            Name            `json:"name"`
	Organization    string          `json:"organization,omitempty"`
	Phones          []Phone         `json:"phoneNumbers"`
	Emails          []Email         `json:"emails"`
	PostalAddresses []PostalAddress `json:"postalAddresses"`
	Avatar          *Avatar         `json:"avatar,omitempty"`
}

// NewContact builds a Contact with non-nil list fields.
func NewContact(name Name, organization string, phones []Phone, emails []Email, addresses []PostalAddress, avatar *Avatar) Contact {
	if phones == nil {
		phones = []Phone{}
	}
	if emails == nil {
		emails = []Email{}
	}
	if addresses == nil {
		addresses = []PostalAddress{}
	}
	return Contact{
		Name:            name,
		Organization:    organization,
		Phones:          phones,
		Emails:          emails,
		PostalAddresses: addresses,
		Avatar:          avatar,
	}
}

// DisplayName returns the label shown for the contact: the display name when
// set, the organization otherwise, empty when neither exists.
func (c Contact) DisplayName() string {
	if c.Name.DisplayName != "" {
		return c.Name.DisplayName
	}
	if c.Organization != "" {
		return c.Organization
	}
	return ""
}

// ContactInfo pairs a Contact with per-number registration results. Numbers
// missing from Push are not registered messaging users.
type ContactInfo struct {
	Contact Contact         `json:"contact"`
	Push    map[string]bool `json:"push,omitempty"`
}

// NewContactInfo wraps a contact with no registration data.
func NewContactInfo(c Contact) ContactInfo {
	return ContactInfo{Contact: c, Push: map[string]bool{}}
}

// IsPush reports whether the given phone number belongs to a registered user.
func (ci ContactInfo) IsPush(p Phone) bool {
	return ci.Push[p.Number]
}

// ContactDiff lists the fields of an incoming contact missing from an existing
// one. A diff is strictly additive: nothing is ever removed or overwritten.
type ContactDiff struct {
	Phones          []Phone
	Emails          []Email
	PostalAddresses []PostalAddress
	Organization    string
	Avatar          *Avatar
}

// IsFieldEmpty reports whether the phone, email, and postal address sets are
// all empty. Organization and avatar do not count.
func (d ContactDiff) IsFieldEmpty() bool {
	return len(d.Phones) == 0 && len(d.Emails) == 0 && len(d.PostalAddresses) == 0
}
