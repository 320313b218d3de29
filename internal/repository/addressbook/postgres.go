package addressbook

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contactshare/internal/domain"
	"contactshare/internal/reconcile"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	region string
	logger *log.Logger
}

// NewPostgres returns a Store backed by Postgres. region is the ISO country
// code used to normalize phone numbers for matching.
func NewPostgres(pool *pgxpool.Pool, region string, logger *log.Logger) Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresStore{pool: pool, region: region, logger: logger}
}

func (s *postgresStore) FindIDByPhone(ctx context.Context, number string) (string, error) {
	const q = `
SELECT contact_id::text
FROM book_phones
WHERE number = $1 OR normalized = $2
ORDER BY created_at
LIMIT 1
`
	var id string
	err := s.pool.QueryRow(ctx, q, number, reconcile.Normalize(number, s.region)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (s *postgresStore) FindIDByEmail(ctx context.Context, email string) (string, error) {
	const q = `
SELECT contact_id::text
FROM book_emails
WHERE address = $1
ORDER BY created_at
LIMIT 1
`
	var id string
	err := s.pool.QueryRow(ctx, q, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (s *postgresStore) ReadContact(ctx context.Context, id string) (*domain.Contact, error) {
	const q = `
SELECT display_name, given_name, family_name, prefix, suffix, middle_name,
       organization, avatar_attachment_id, avatar_is_profile
FROM book_contacts
WHERE id = $1
`
	var (
		name         domain.Name
		organization string
		avatarID     *string
		avatarProf   bool
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&name.DisplayName,
		&name.GivenName,
		&name.FamilyName,
		&name.Prefix,
		&name.Suffix,
		&name.MiddleName,
		&organization,
		&avatarID,
		&avatarProf,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	// A row without any name falls back to the organization; a contact with
	// neither is not presentable and reads as missing.
	if name.IsEmpty() {
		if organization == "" {
			s.logger.Printf("address book: contact %s has no name or organization", id)
			return nil, domain.ErrNotFound
		}
		name = domain.Name{DisplayName: organization, GivenName: organization}
	}

	phones, err := s.readPhones(ctx, id)
	if err != nil {
		return nil, err
	}
	emails, err := s.readEmails(ctx, id)
	if err != nil {
		return nil, err
	}
	addresses, err := s.readPostalAddresses(ctx, id)
	if err != nil {
		return nil, err
	}

	var avatar *domain.Avatar
	if avatarID != nil && *avatarID != "" {
		avatar = &domain.Avatar{AttachmentID: *avatarID, IsProfile: avatarProf}
	}

	c := domain.NewContact(name, organization, phones, emails, addresses, avatar)
	return &c, nil
}

// readPhones returns one entry per normalized number. When the same number is
// stored twice, a typed entry wins over a label-less CUSTOM one.
func (s *postgresStore) readPhones(ctx context.Context, id string) ([]domain.Phone, error) {
	const q = `
SELECT number, type, label
FROM book_phones
WHERE contact_id = $1
ORDER BY created_at
`
	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		order []string
		seen  = map[string]domain.Phone{}
	)
	for rows.Next() {
		var (
			number, label string
			typ           string
		)
		if err := rows.Scan(&number, &typ, &label); err != nil {
			return nil, err
		}

		normalized := reconcile.Normalize(number, s.region)
		candidate := domain.Phone{Number: normalized, Type: domain.PhoneType(typ), Label: label}

		existing, ok := seen[normalized]
		if !ok {
			order = append(order, normalized)
			seen[normalized] = candidate
		} else if existing.Type == domain.PhoneCustom && existing.Label == "" {
			seen[normalized] = candidate
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	phones := make([]domain.Phone, 0, len(order))
	for _, n := range order {
		phones = append(phones, seen[n])
	}
	return phones, nil
}

func (s *postgresStore) readEmails(ctx context.Context, id string) ([]domain.Email, error) {
	const q = `
SELECT address, type, label
FROM book_emails
WHERE contact_id = $1
ORDER BY created_at
`
	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []domain.Email
	for rows.Next() {
		var (
			address, label string
			typ            string
		)
		if err := rows.Scan(&address, &typ, &label); err != nil {
			return nil, err
		}
		emails = append(emails, domain.Email{Address: address, Type: domain.EmailType(typ), Label: label})
	}
	return emails, rows.Err()
}

func (s *postgresStore) readPostalAddresses(ctx context.Context, id string) ([]domain.PostalAddress, error) {
	const q = `
SELECT type, label, street, po_box, neighborhood, city, region, postal_code, country
FROM book_addresses
WHERE contact_id = $1
ORDER BY created_at
`
	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []domain.PostalAddress
	for rows.Next() {
		var a domain.PostalAddress
		var typ string
		if err := rows.Scan(&typ, &a.Label, &a.Street, &a.PoBox, &a.Neighborhood, &a.City, &a.Region, &a.PostalCode, &a.Country); err != nil {
			return nil, err
		}
		a.Type = domain.AddressType(typ)
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func (s *postgresStore) InsertContact(ctx context.Context, c domain.Contact) (string, error) {
	id := uuid.NewString()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var avatarID *string
	avatarProf := false
	if c.Avatar != nil && !c.Avatar.IsProfile && c.Avatar.AttachmentID != "" {
		avatarID = &c.Avatar.AttachmentID
		avatarProf = c.Avatar.IsProfile
	}

	const insertContact = `
INSERT INTO book_contacts (id, display_name, given_name, family_name, prefix, suffix, middle_name,
                           organization, avatar_attachment_id, avatar_is_profile)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err = tx.Exec(ctx, insertContact,
		id,
		c.Name.DisplayName,
		c.Name.GivenName,
		c.Name.FamilyName,
		c.Name.Prefix,
		c.Name.Suffix,
		c.Name.MiddleName,
		c.Organization,
		avatarID,
		avatarProf,
	)
	if err != nil {
		return "", err
	}

	if err := queueFieldInserts(ctx, tx, id, c.Phones, c.Emails, c.PostalAddresses, s.region); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *postgresStore) ApplyInsert(ctx context.Context, id string, diff domain.ContactDiff) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := queueFieldInserts(ctx, tx, id, diff.Phones, diff.Emails, diff.PostalAddresses, s.region); err != nil {
		return err
	}

	if diff.Organization != "" {
		const q = `UPDATE book_contacts SET organization = $2 WHERE id = $1 AND organization = ''`
		if _, err := tx.Exec(ctx, q, id, diff.Organization); err != nil {
			return err
		}
	}
	if diff.Avatar != nil {
		const q = `
UPDATE book_contacts
SET avatar_attachment_id = $2, avatar_is_profile = $3
WHERE id = $1 AND avatar_attachment_id IS NULL
`
		if _, err := tx.Exec(ctx, q, id, diff.Avatar.AttachmentID, diff.Avatar.IsProfile); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// queueFieldInserts batches every field-row insert so a merge lands atomically
// within the surrounding transaction.
func queueFieldInserts(ctx context.Context, tx pgx.Tx, contactID string, phones []domain.Phone, emails []domain.Email, addresses []domain.PostalAddress, region string) error {
	batch := &pgx.Batch{}

	for _, p := range phones {
		batch.Queue(`
INSERT INTO book_phones (id, contact_id, number, normalized, type, label)
VALUES ($1, $2, $3, $4, $5, $6)
`, uuid.NewString(), contactID, p.Number, reconcile.Normalize(p.Number, region), string(p.Type), p.Label)
	}
	for _, e := range emails {
		batch.Queue(`
INSERT INTO book_emails (id, contact_id, address, type, label)
VALUES ($1, $2, $3, $4, $5)
`, uuid.NewString(), contactID, e.Address, string(e.Type), e.Label)
	}
	for _, a := range addresses {
		batch.Queue(`
INSERT INTO book_addresses (id, contact_id, type, label, street, po_box, neighborhood, city, region, postal_code, country)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, uuid.NewString(), contactID, string(a.Type), a.Label, a.Street, a.PoBox, a.Neighborhood, a.City, a.Region, a.PostalCode, a.Country)
	}

	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	return results.Close()
}
