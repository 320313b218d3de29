// Package reconcile holds the pure contact-matching logic: phone number
// normalization, the additive field diff between an incoming contact and an
// existing one, the superset test built on that diff, and the ordered lookup
// keys used to find a candidate existing contact. Nothing here performs I/O;
// every function is safe to call from any goroutine.
package reconcile

import (
	"strconv"

	"github.com/nyaruka/phonenumbers"

	"contactshare/internal/domain"
)

// Normalize returns the E.164 form of a phone number, parsed against the
// given ISO 3166-1 alpha-2 region. Numbers that cannot be parsed are returned
// unchanged; normalization never fails.
func Normalize(number, region string) string {
	parsed, err := phonenumbers.Parse(number, region)
	if err != nil {
		return number
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// LocalNumber returns the national significant number, the form a locally
// stored contact is most likely to carry. Falls back to the input on parse
// failure.
func LocalNumber(number, region string) string {
	parsed, err := phonenumbers.Parse(number, region)
	if err != nil {
		return number
	}
	return strconv.FormatUint(parsed.GetNationalNumber(), 10)
}

// Pretty formats a number for display in international notation, falling back
// to the raw input when it cannot be parsed.
func Pretty(number, region string) string {
	parsed, err := phonenumbers.Parse(number, region)
	if err != nil {
		return number
	}
	return phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL)
}

// Diff computes the fields of incoming that existing lacks. Phones match by
// raw number, emails by address, postal addresses by rendered text. The
// organization is picked up only when existing has none, and the avatar only
// when existing has none and incoming carries a non-profile avatar with
// resolvable image data. A diff never removes or overwrites anything.
func Diff(existing, incoming domain.Contact) domain.ContactDiff {
	var diff domain.ContactDiff

	numbers := make(map[string]struct{}, len(existing.Phones))
	for _, p := range existing.Phones {
		numbers[p.Number] = struct{}{}
	}
	for _, p := range incoming.Phones {
		if _, ok := numbers[p.Number]; !ok {
			diff.Phones = append(diff.Phones, p)
		}
	}

	addresses := make(map[string]struct{}, len(existing.Emails))
	for _, e := range existing.Emails {
		addresses[e.Address] = struct{}{}
	}
	for _, e := range incoming.Emails {
		if _, ok := addresses[e.Address]; !ok {
			diff.Emails = append(diff.Emails, e)
		}
	}

	rendered := make(map[string]struct{}, len(existing.PostalAddresses))
	for _, a := range existing.PostalAddresses {
		rendered[a.Render()] = struct{}{}
	}
	for _, a := range incoming.PostalAddresses {
		if _, ok := rendered[a.Render()]; !ok {
			diff.PostalAddresses = append(diff.PostalAddresses, a)
		}
	}

	if existing.Organization == "" && incoming.Organization != "" {
		diff.Organization = incoming.Organization
	}

	if existing.Avatar == nil && hasMergeableAvatar(incoming) {
		diff.Avatar = incoming.Avatar
	}

	return diff
}

// Profile photos are never merged into a local contact.
func hasMergeableAvatar(c domain.Contact) bool {
	return c.Avatar != nil && c.Avatar.AttachmentID != "" && !c.Avatar.IsProfile
}

// IsSuperset reports whether existing already contains every phone, email, and
// postal address of incoming. Organization and avatar differences do not
// affect the verdict.
func IsSuperset(existing, incoming domain.Contact) bool {
	return Diff(existing, incoming).IsFieldEmpty()
}

// KeyKind distinguishes the lookup key types tried when searching for a
// matching local contact.
type KeyKind int

const (
	KeyPhone KeyKind = iota
	KeyEmail
)

// Key is a single candidate-lookup query.
type Key struct {
	Kind  KeyKind
	Value string
}

// LookupKeys returns the queries to try, in order, when searching for an
// existing contact that matches incoming: the first phone number as provided,
// that number in local-dialing form when it differs, then the first email.
// The first query with a hit wins; an empty slice means the contact has no
// searchable field.
func LookupKeys(incoming domain.Contact, region string) []Key {
	var keys []Key

	if len(incoming.Phones) > 0 {
		raw := incoming.Phones[0].Number
		keys = append(keys, Key{Kind: KeyPhone, Value: raw})

		if local := LocalNumber(raw, region); local != raw {
			keys = append(keys, Key{Kind: KeyPhone, Value: local})
		}
	}
	if len(incoming.Emails) > 0 {
		keys = append(keys, Key{Kind: KeyEmail, Value: incoming.Emails[0].Address})
	}

	return keys
}

// DisplayNumber picks the number to show for a contact: the first registered
// number, else the first mobile number, else the first number. Returns nil
// when the contact has no phone numbers.
func DisplayNumber(info domain.ContactInfo) *domain.Phone {
	phones := info.Contact.Phones
	if len(phones) == 0 {
		return nil
	}

	for i := range phones {
		if info.IsPush(phones[i]) {
			return &phones[i]
		}
	}
	for i := range phones {
		if phones[i].Type == domain.PhoneMobile {
			return &phones[i]
		}
	}
	return &phones[0]
}
