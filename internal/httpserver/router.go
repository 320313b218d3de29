package httpserver

import (
	"context"
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"contactshare/internal/domain"
	"contactshare/internal/repository/attachment"
	contactsvc "contactshare/internal/service/contacts"
	"contactshare/internal/wire"
)

// ContactService is the reconciliation façade consumed by the handlers.
type ContactService interface {
	FindMatch(ctx context.Context, incoming domain.Contact) (*contactsvc.MatchResult, error)
	SaveAsNewContact(ctx context.Context, c domain.Contact) (*domain.ContactInfo, error)
	MergeIntoExisting(ctx context.Context, id string, incoming domain.Contact) (*domain.ContactInfo, error)
	PersistAvatars(ctx context.Context, contacts []domain.Contact) []domain.Contact
}

// ContactMapper builds the outbound shared-contact payload.
type ContactMapper interface {
	Contacts(ctx context.Context, contacts []domain.Contact) *wire.Payload
}

// Deps bundles the collaborators the router needs.
type Deps struct {
	ContactSvc  ContactService
	Mapper      ContactMapper
	Attachments attachment.Store
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.ContactSvc == nil || deps.Mapper == nil || deps.Attachments == nil {
		return nil, errors.New("httpserver: missing dependencies")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	v1 := router.Group("/v1")
	v1.POST("/contacts/reconcile", reconcileHandler(deps.ContactSvc))
	v1.POST("/contacts", saveNewHandler(deps.ContactSvc))
	v1.POST("/contacts/:id/merge", mergeHandler(deps.ContactSvc))
	v1.POST("/contacts/share", shareHandler(deps.Mapper))
	v1.POST("/attachments", uploadHandler(deps.Attachments))

	return router, nil
}
