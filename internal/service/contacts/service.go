package contacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"contactshare/internal/domain"
	"contactshare/internal/reconcile"
	"contactshare/internal/repository/addressbook"
	"contactshare/internal/repository/attachment"
	"contactshare/internal/repository/directory"
)

// ErrLookupFailed means the address book could not be queried at all. It is
// distinct from "no match": callers may retry instead of presenting the
// contact as new.
var ErrLookupFailed = errors.New("contact lookup failed")

// State describes where a shared contact stands relative to the local
// address book.
type State string

const (
	// StateLoading is the window between accepting an incoming contact and
	// the candidate lookup completing.
	StateLoading State = "LOADING"
	// StateNew means no matching local contact fully contains the incoming one.
	StateNew State = "NEW"
	// StateAdded means a local contact already contains the incoming one, or
	// a save/merge just completed.
	StateAdded State = "ADDED"
)

// MatchResult is the outcome of a candidate lookup. ContactID is set whenever
// some local contact matched a lookup key, even if it is not yet a superset;
// callers use it to drive an additive merge.
type MatchResult struct {
	State     State
	ContactID string
	Info      *domain.ContactInfo
}

// Service sequences reconciliation against the address book, attachment, and
// directory stores. All methods are synchronous; callers own dispatch and
// cancellation.
type Service struct {
	book        addressbook.Store
	attachments attachment.Store
	dir         directory.Store
	refresh     directory.Refresher
	region      string
	logger      *log.Logger
}

// New creates a Service. refresh may be nil when no directory round-trip is
// available; unknown numbers then stay unregistered. A nil logger discards
// output.
func New(book addressbook.Store, attachments attachment.Store, dir directory.Store, refresh directory.Refresher, region string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		book:        book,
		attachments: attachments,
		dir:         dir,
		refresh:     refresh,
		region:      region,
		logger:      logger,
	}
}

// FindMatch looks for a local contact matching the incoming one, trying the
// lookup keys in order and short-circuiting on the first hit. A candidate
// that already contains every incoming field yields StateAdded with its
// ContactInfo; a partial candidate yields StateNew with the candidate's ID so
// the caller can offer a merge; no candidate yields StateNew alone. A store
// failure is surfaced as ErrLookupFailed, never folded into "no match".
func (s *Service) FindMatch(ctx context.Context, incoming domain.Contact) (*MatchResult, error) {
	id, err := s.findCandidateID(ctx, incoming)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if id == "" {
		return &MatchResult{State: StateNew}, nil
	}

	existing, err := s.book.ReadContact(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &MatchResult{State: StateNew}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	if !reconcile.IsSuperset(*existing, incoming) {
		return &MatchResult{State: StateNew, ContactID: id}, nil
	}

	info := s.BuildContactInfo(ctx, *existing)
	return &MatchResult{State: StateAdded, ContactID: id, Info: &info}, nil
}

func (s *Service) findCandidateID(ctx context.Context, incoming domain.Contact) (string, error) {
	for _, key := range reconcile.LookupKeys(incoming, s.region) {
		var (
			id  string
			err error
		)
		switch key.Kind {
		case reconcile.KeyPhone:
			id, err = s.book.FindIDByPhone(ctx, key.Value)
		case reconcile.KeyEmail:
			id, err = s.book.FindIDByEmail(ctx, key.Value)
		}
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return "", err
		}
		return id, nil
	}
	return "", nil
}

// SaveAsNewContact inserts every field of the contact as a fresh address book
// entry, re-reads it, and returns its ContactInfo. Profile avatars are never
// written to the address book.
func (s *Service) SaveAsNewContact(ctx context.Context, c domain.Contact) (*domain.ContactInfo, error) {
	id, err := s.book.InsertContact(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}

	saved, err := s.book.ReadContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read back contact %s: %w", id, err)
	}

	info := s.BuildContactInfo(ctx, *saved)
	return &info, nil
}

// MergeIntoExisting adds the fields of incoming that the existing contact
// lacks, then re-reads and returns the merged contact. The apply always
// happens before the re-read within the call. Nothing is removed or
// overwritten; merging a contact into itself is a no-op.
func (s *Service) MergeIntoExisting(ctx context.Context, id string, incoming domain.Contact) (*domain.ContactInfo, error) {
	existing, err := s.book.ReadContact(ctx, id)
	if err != nil {
		return nil, err
	}

	diff := reconcile.Diff(*existing, incoming)
	if err := s.book.ApplyInsert(ctx, id, diff); err != nil {
		return nil, fmt.Errorf("apply contact diff: %w", err)
	}

	merged, err := s.book.ReadContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read back contact %s: %w", id, err)
	}

	info := s.BuildContactInfo(ctx, *merged)
	return &info, nil
}

// PersistAvatars copies each contact's avatar bytes into the attachment store
// and rebuilds the contact around the persisted reference. A contact whose
// avatar cannot be copied keeps everything but the avatar.
func (s *Service) PersistAvatars(ctx context.Context, contacts []domain.Contact) []domain.Contact {
	persisted := make([]domain.Contact, 0, len(contacts))

	for _, c := range contacts {
		var avatar *domain.Avatar

		if c.Avatar != nil && c.Avatar.AttachmentID != "" {
			id, err := s.copyAvatar(ctx, c.Avatar.AttachmentID)
			if err != nil {
				s.logger.Printf("contacts: failed to persist avatar for %q, skipping it: %v", c.DisplayName(), err)
			} else {
				avatar = &domain.Avatar{AttachmentID: id, IsProfile: c.Avatar.IsProfile}
			}
		}

		persisted = append(persisted, domain.NewContact(c.Name, c.Organization, c.Phones, c.Emails, c.PostalAddresses, avatar))
	}

	return persisted
}

func (s *Service) copyAvatar(ctx context.Context, id string) (string, error) {
	stream, meta, err := s.attachments.Open(ctx, id)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	return s.attachments.Persist(ctx, stream, meta.ContentType)
}

// BuildContactInfo resolves the registration state of every phone number on
// the contact. Unknown numbers go through the directory refresher when one is
// configured; a failed refresh defaults that number to not-registered.
func (s *Service) BuildContactInfo(ctx context.Context, c domain.Contact) domain.ContactInfo {
	info := domain.NewContactInfo(c)

	for _, phone := range c.Phones {
		number := reconcile.Normalize(phone.Number, s.region)

		state, err := s.dir.Lookup(ctx, number)
		if err != nil {
			s.logger.Printf("contacts: directory lookup for %s failed: %v", number, err)
			state = directory.StateUnknown
		}

		if state != directory.StateUnknown {
			info.Push[phone.Number] = state == directory.StateRegistered
			continue
		}

		if s.refresh == nil {
			continue
		}
		registered, err := s.refresh(ctx, number)
		if err != nil {
			s.logger.Printf("contacts: failed to determine if %s is registered, defaulting to false: %v", number, err)
			continue
		}
		if err := s.dir.Mark(ctx, number, registered); err != nil {
			s.logger.Printf("contacts: failed to cache registration for %s: %v", number, err)
		}
		info.Push[phone.Number] = registered
	}

	return info
}
