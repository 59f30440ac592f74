package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/pogo-pad/internal/config"
	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/session"
	"github.com/MeKo-Tech/pogo-pad/internal/store"
)

// newAdapter builds the configured engine wrapped in an adapter.
func newAdapter(cfg *config.Config) (*recognition.Adapter, error) {
	engineOpts, err := cfg.ToEngineOptions()
	if err != nil {
		return nil, err
	}
	adapterOpts, err := cfg.ToAdapterOptions()
	if err != nil {
		return nil, err
	}
	engine, err := recognition.NewEngine(engineOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s engine: %w", cfg.Recognition.Engine, err)
	}
	adapterOpts.Logger = slog.Default()
	return recognition.NewAdapter(engine, recognition.NewDecoder(cfg.Recognition.PDFPage), adapterOpts), nil
}

// newSaver writes to output.dir, and to the object store for s3:// names
// when one is configured.
func newSaver(ctx context.Context, cfg *config.Config) (store.Saver, error) {
	router := &store.Router{Local: store.NewFileStore(cfg.Output.Dir)}
	if cfg.MinioEnabled() {
		remote, err := store.NewMinioStore(ctx, cfg.ToMinioConfig())
		if err != nil {
			return nil, err
		}
		router.Remote = remote
	}
	return router, nil
}

// sessionFactory returns a constructor for sessions sharing rec and saver.
func sessionFactory(cfg *config.Config, rec session.Recognizer, saver store.Saver) (func() *session.Session, error) {
	policy, err := cfg.DuplicatePolicy()
	if err != nil {
		return nil, err
	}
	return func() *session.Session {
		return session.New(rec, session.Options{
			DuplicatePolicy: policy,
			Saver:           saver,
			Logger:          slog.Default(),
		})
	}, nil
}
