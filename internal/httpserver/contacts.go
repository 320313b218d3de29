package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"contactshare/internal/codec"
	"contactshare/internal/domain"
	"contactshare/internal/repository/attachment"
	contactsvc "contactshare/internal/service/contacts"
)

// contactRequest carries a contact in its persisted text form plus the
// attachment holding its avatar bytes, if any.
type contactRequest struct {
	Contact  json.RawMessage `json:"contact" binding:"required"`
	AvatarID string          `json:"avatarId"`
}

type shareRequest struct {
	Contacts []contactRequest `json:"contacts"`
}

type contactInfoResponse struct {
	State     contactsvc.State `json:"state"`
	ContactID string           `json:"contactId,omitempty"`
	Contact   *domain.Contact  `json:"contact,omitempty"`
	Push      map[string]bool  `json:"push,omitempty"`
}

func toInfoResponse(state contactsvc.State, id string, info *domain.ContactInfo) contactInfoResponse {
	resp := contactInfoResponse{State: state, ContactID: id}
	if info != nil {
		resp.Contact = &info.Contact
		resp.Push = info.Push
	}
	return resp
}

func decodeContact(c *gin.Context, req contactRequest) (domain.Contact, bool) {
	contact, err := codec.Decode(req.Contact, req.AvatarID)
	if err != nil {
		var decodeErr *codec.DecodeError
		if errors.As(err, &decodeErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": decodeErr.Error()})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed contact"})
		}
		return domain.Contact{}, false
	}
	return contact, true
}

func reconcileHandler(svc ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		incoming, ok := decodeContact(c, req)
		if !ok {
			return
		}

		match, err := svc.FindMatch(c.Request.Context(), incoming)
		if err != nil {
			if errors.Is(err, contactsvc.ErrLookupFailed) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "contact lookup failed, retry later"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
			return
		}

		c.JSON(http.StatusOK, toInfoResponse(match.State, match.ContactID, match.Info))
	}
}

func saveNewHandler(svc ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		incoming, ok := decodeContact(c, req)
		if !ok {
			return
		}

		persisted := svc.PersistAvatars(c.Request.Context(), []domain.Contact{incoming})

		info, err := svc.SaveAsNewContact(c.Request.Context(), persisted[0])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save contact"})
			return
		}

		c.JSON(http.StatusCreated, toInfoResponse(contactsvc.StateAdded, "", info))
	}
}

func mergeHandler(svc ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		incoming, ok := decodeContact(c, req)
		if !ok {
			return
		}

		info, err := svc.MergeIntoExisting(c.Request.Context(), id, incoming)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to merge contact"})
			return
		}

		c.JSON(http.StatusOK, toInfoResponse(contactsvc.StateAdded, id, info))
	}
}

func shareHandler(mapper ContactMapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req shareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		contacts := make([]domain.Contact, 0, len(req.Contacts))
		for _, cr := range req.Contacts {
			contact, ok := decodeContact(c, cr)
			if !ok {
				return
			}
			contacts = append(contacts, contact)
		}

		payload := mapper.Contacts(c.Request.Context(), contacts)
		if payload == nil {
			// No contacts: the shared-contact field is omitted, not empty.
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, payload)
	}
}

func uploadHandler(store attachment.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		contentType := c.GetHeader("Content-Type")

		id, err := store.Persist(c.Request.Context(), c.Request.Body, contentType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store attachment"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}
