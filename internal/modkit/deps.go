package modkit

import (
	"playreviews/internal/platform/config"
	"playreviews/internal/platform/logger"
	"playreviews/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log   logger.Logger
	Cfg   config.Conf
	Store *store.Store // nil or zero fields when no database sink is configured
}

// PG returns the postgres seam or nil
func (d Deps) PG() store.TxRunner {
	if d.Store == nil {
		return nil
	}
	return d.Store.PG
}

// SQLite returns the sqlite seam or nil
func (d Deps) SQLite() store.TxRunner {
	if d.Store == nil {
		return nil
	}
	return d.Store.SQLite
}

// CH returns the clickhouse seam or nil
func (d Deps) CH() store.Clickhouse {
	if d.Store == nil {
		return nil
	}
	return d.Store.CH
}
