package main

import (
	"github.com/rotisserie/eris"

	"github.com/hawthorn-media/keyword-cli/internal/store"
	"github.com/hawthorn-media/keyword-cli/pkg/dataforseo"
)

func initStore() (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		path = "keyword-cli.db"
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open run ledger")
	}
	return st, nil
}

func initClient() (*dataforseo.Client, error) {
	return dataforseo.NewClient(cfg.DataForSEO)
}
