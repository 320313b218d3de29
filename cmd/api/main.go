package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"contactshare/internal/config"
	"contactshare/internal/db"
	"contactshare/internal/httpserver"
	"contactshare/internal/repository/addressbook"
	"contactshare/internal/repository/attachment"
	"contactshare/internal/repository/directory"
	contactsvc "contactshare/internal/service/contacts"
	"contactshare/internal/wire"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	bookStore := addressbook.NewPostgres(dbpool, cfg.DefaultRegion, logger)
	attachmentStore := attachment.NewPostgres(dbpool)
	directoryStore := directory.NewPostgres(dbpool)

	// The directory refresher is a network collaborator owned by the
	// messaging transport; without one, unknown numbers stay unregistered.
	contactService := contactsvc.New(bookStore, attachmentStore, directoryStore, nil, cfg.DefaultRegion, logger)
	contactMapper := wire.NewMapper(attachmentStore, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		ContactSvc:  contactService,
		Mapper:      contactMapper,
		Attachments: attachmentStore,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
