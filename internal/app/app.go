// Package app wires configuration, storage, the AI provider and the HTTP
// API into a runnable application.
package app

import (
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kynahq/kyna/internal/api"
	"github.com/kynahq/kyna/internal/catalog"
	"github.com/kynahq/kyna/internal/config"
	"github.com/kynahq/kyna/internal/index"
	"github.com/kynahq/kyna/internal/log"
	"github.com/kynahq/kyna/internal/memory"
	"github.com/kynahq/kyna/internal/rag"
)

// App is the assembled application.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	Pool     *pgxpool.Pool
	Catalog  *catalog.Store
	Index    *index.Store
	Sessions memory.Store
	Chain    *rag.Chain
	Ingestor *rag.Ingestor
	Server   *api.Server

	// cleanups run in reverse order on Close.
	cleanups []func()
}

// Close releases all resources acquired during Setup.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
	return nil
}

func (a *App) onClose(fn func()) {
	a.cleanups = append(a.cleanups, fn)
}
