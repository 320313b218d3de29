package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"contactshare/internal/domain"
	"contactshare/internal/repository/attachment"
	contactsvc "contactshare/internal/service/contacts"
	"contactshare/internal/wire"
)

const validContactDoc = `{"name":{"displayName":"Ada"},"phoneNumbers":[{"number":"+12025550123","type":"MOBILE"}],"emails":[],"postalAddresses":[]}`

type stubContactService struct {
	match    *contactsvc.MatchResult
	matchErr error

	saved    *domain.ContactInfo
	saveErr  error
	merged   *domain.ContactInfo
	mergeErr error

	mergedID string
}

func (s *stubContactService) FindMatch(context.Context, domain.Contact) (*contactsvc.MatchResult, error) {
	return s.match, s.matchErr
}

func (s *stubContactService) SaveAsNewContact(context.Context, domain.Contact) (*domain.ContactInfo, error) {
	return s.saved, s.saveErr
}

func (s *stubContactService) MergeIntoExisting(_ context.Context, id string, _ domain.Contact) (*domain.ContactInfo, error) {
	s.mergedID = id
	return s.merged, s.mergeErr
}

func (s *stubContactService) PersistAvatars(_ context.Context, contacts []domain.Contact) []domain.Contact {
	return contacts
}

type stubMapper struct {
	payload *wire.Payload
}

func (m *stubMapper) Contacts(context.Context, []domain.Contact) *wire.Payload {
	return m.payload
}

type stubAttachmentStore struct {
	persistedType string
	persisted     []byte
	persistErr    error
}

func (s *stubAttachmentStore) Persist(_ context.Context, r io.Reader, contentType string) (string, error) {
	if s.persistErr != nil {
		return "", s.persistErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.persisted = data
	s.persistedType = contentType
	return "att-1", nil
}

func (s *stubAttachmentStore) Open(context.Context, string) (io.ReadCloser, attachment.Meta, error) {
	return nil, attachment.Meta{}, domain.ErrNotFound
}

func newTestRouter(t *testing.T, svc ContactService, mapper ContactMapper, store attachment.Store) *gin.Engine {
	t.Helper()
	if store == nil {
		store = &stubAttachmentStore{}
	}
	router, err := buildRouter(log.New(io.Discard, "", 0), nil, Deps{
		ContactSvc:  svc,
		Mapper:      mapper,
		Attachments: store,
	})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBuildRouter_MissingDeps(t *testing.T) {
	_, err := buildRouter(log.New(io.Discard, "", 0), nil, Deps{})
	if err == nil {
		t.Fatal("expected an error for missing dependencies")
	}
}

func TestReconcile_New(t *testing.T) {
	svc := &stubContactService{match: &contactsvc.MatchResult{State: contactsvc.StateNew}}
	router := newTestRouter(t, svc, &stubMapper{}, nil)

	rec := postJSON(router, "/v1/contacts/reconcile", `{"contact":`+validContactDoc+`}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp contactInfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.State != contactsvc.StateNew || resp.ContactID != "" || resp.Contact != nil {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestReconcile_Added(t *testing.T) {
	existing := domain.NewContact(domain.Name{DisplayName: "Ada"}, "",
		[]domain.Phone{{Number: "+12025550123", Type: domain.PhoneMobile}}, nil, nil, nil)
	info := domain.NewContactInfo(existing)
	info.Push["+12025550123"] = true

	svc := &stubContactService{match: &contactsvc.MatchResult{
		State:     contactsvc.StateAdded,
		ContactID: "c1",
		Info:      &info,
	}}
	router := newTestRouter(t, svc, &stubMapper{}, nil)

	rec := postJSON(router, "/v1/contacts/reconcile", `{"contact":`+validContactDoc+`}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp contactInfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.State != contactsvc.StateAdded || resp.ContactID != "c1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Contact == nil || !resp.Push["+12025550123"] {
		t.Fatalf("expected contact and push map, got %+v", resp)
	}
}

func TestReconcile_LookupFailure(t *testing.T) {
	svc := &stubContactService{matchErr: contactsvc.ErrLookupFailed}
	router := newTestRouter(t, svc, &stubMapper{}, nil)

	rec := postJSON(router, "/v1/contacts/reconcile", `{"contact":`+validContactDoc+`}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("a lookup failure must be retryable, expected 503, got %d", rec.Code)
	}
}

func TestReconcile_BadContactDoc(t *testing.T) {
	svc := &stubContactService{}
	router := newTestRouter(t, svc, &stubMapper{}, nil)

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing contact", `{}`},
		{"missing required keys", `{"contact":{"name":{}}}`},
		{"unknown enum", `{"contact":{"name":{},"phoneNumbers":[{"number":"1","type":"PAGER"}],"emails":[],"postalAddresses":[]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(router, "/v1/contacts/reconcile", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSaveNew(t *testing.T) {
	saved := domain.NewContactInfo(domain.NewContact(domain.Name{DisplayName: "Ada"}, "",
		[]domain.Phone{{Number: "+12025550123", Type: domain.PhoneMobile}}, nil, nil, nil))

	svc := &stubContactService{saved: &saved}
	router := newTestRouter(t, svc, &stubMapper{}, nil)

	rec := postJSON(router, "/v1/contacts", `{"contact":`+validContactDoc+`}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp contactInfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.State != contactsvc.StateAdded || resp.Contact == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestMerge_NotFound(t *testing.T) {
	svc := &stubContactService{mergeErr: domain.ErrNotFound}
	router := newTestRouter(t, svc, &stubMapper{}, nil)

	rec := postJSON(router, "/v1/contacts/missing/merge", `{"contact":`+validContactDoc+`}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.mergedID != "missing" {
		t.Fatalf("expected path ID to reach the service, got %q", svc.mergedID)
	}
}

func TestMerge_OK(t *testing.T) {
	merged := domain.NewContactInfo(domain.NewContact(domain.Name{DisplayName: "Ada"}, "", nil, nil, nil, nil))
	svc := &stubContactService{merged: &merged}
	router := newTestRouter(t, svc, &stubMapper{}, nil)

	rec := postJSON(router, "/v1/contacts/c1/merge", `{"contact":`+validContactDoc+`}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp contactInfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.State != contactsvc.StateAdded || resp.ContactID != "c1" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestShare_EmptyOmitsField(t *testing.T) {
	router := newTestRouter(t, &stubContactService{}, &stubMapper{payload: nil}, nil)

	rec := postJSON(router, "/v1/contacts/share", `{"contacts":[]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "sharedContacts") {
		t.Fatalf("no contacts means the field is omitted entirely, got %s", rec.Body.String())
	}
}

func TestShare_WithContacts(t *testing.T) {
	payload := &wire.Payload{SharedContacts: []wire.SharedContact{{
		Name:   wire.Name{Display: "Ada"},
		Phones: []wire.Phone{{Value: "+12025550123", Type: wire.PhoneMobile}},
	}}}
	router := newTestRouter(t, &stubContactService{}, &stubMapper{payload: payload}, nil)

	rec := postJSON(router, "/v1/contacts/share", `{"contacts":[{"contact":`+validContactDoc+`}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got wire.Payload
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(got.SharedContacts) != 1 || got.SharedContacts[0].Name.Display != "Ada" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestUploadAttachment(t *testing.T) {
	store := &stubAttachmentStore{}
	router := newTestRouter(t, &stubContactService{}, &stubMapper{}, store)

	req := httptest.NewRequest(http.MethodPost, "/v1/attachments", bytes.NewReader([]byte("jpeg bytes")))
	req.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(store.persisted, []byte("jpeg bytes")) || store.persistedType != "image/jpeg" {
		t.Fatalf("attachment not persisted as sent: %q %q", store.persisted, store.persistedType)
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID != "att-1" {
		t.Fatalf("expected the store's ID, got %q", resp.ID)
	}
}

func TestUploadAttachment_StoreFailure(t *testing.T) {
	store := &stubAttachmentStore{persistErr: errors.New("disk full")}
	router := newTestRouter(t, &stubContactService{}, &stubMapper{}, store)

	req := httptest.NewRequest(http.MethodPost, "/v1/attachments", bytes.NewReader([]byte("jpeg bytes")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &stubContactService{}, &stubMapper{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz_NoDB(t *testing.T) {
	router := newTestRouter(t, &stubContactService{}, &stubMapper{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a database, got %d", rec.Code)
	}
}
