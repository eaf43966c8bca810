package cli

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/app"
	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/ledger"
	applog "expensetracker/internal/log"
	"expensetracker/internal/render"
	"expensetracker/internal/sheets/google"
	"expensetracker/internal/storage"
)

// Stack is a fully wired tracker together with the resources it holds.
type Stack struct {
	Tracker *app.Tracker
	Views   *cache.LRUCache[render.View]
	closers []func() error
}

// Close releases the resources in reverse order of acquisition.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenStack opens the configured backend, loads the ledger and attaches the
// optional AMQP and Google Sheets presenters. Extra presenters, such as a
// terminal writer, are appended after them.
func OpenStack(ctx context.Context, cfg *config.Config, logger *applog.Logger, extra ...render.Presenter) (*Stack, error) {
	s := &Stack{}
	fail := func(err error) (*Stack, error) {
		_ = s.Close()
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).Open(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	s.closers = append(s.closers, res.Close)

	gw := storage.NewGateway(res.Blobs, logger)
	store, err := ledger.Open(ctx, gw, logger)
	if err != nil {
		return fail(err)
	}

	var presenters render.Multi
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			return fail(fmt.Errorf("amqp: %w", err))
		}
		s.closers = append(s.closers, client.Close)
		presenters = append(presenters, amqp.NewPresenter(client, cfg.CurrencySymbol))
	}
	if cfg.SheetsEnabled() {
		pub, err := google.NewReportPublisher(ctx, google.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleReportSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, cfg.CurrencySymbol, logger)
		if err != nil {
			return fail(fmt.Errorf("google sheets: %w", err))
		}
		presenters = append(presenters, pub)
	}
	presenters = append(presenters, extra...)

	s.Views = cache.NewLRUCache[render.View](cfg.ViewCacheSize, cfg.ViewCacheTTL)
	s.Tracker = app.New(store, presenters, s.Views, logger)

	logger.InfoContext(ctx, "Tracker ready",
		applog.FieldOperation, applog.OpStartup,
		applog.FieldBackend, bcfg.Type.String(),
		"presenters", len(presenters))
	return s, nil
}
