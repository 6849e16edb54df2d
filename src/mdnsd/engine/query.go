package engine

import (
	"context"

	"github.com/quietwire/mdnsd/src/mdnsd/query"
	"github.com/quietwire/mdnsd/src/mdnsd/scheduler"
)

// Query runs a one-shot search per params and blocks until it finishes,
// either because MaxResults results were collected or because the search
// timed out (spec §6 "query(...) -> results | async_handle"). A timeout is
// not an error: it returns whatever results were collected.
func (e *Engine) Query(ctx context.Context, params query.SearchParams) ([]*query.Result, error) {
	s, err := e.registerSearch(ctx, params)
	if err != nil {
		return nil, err
	}
	return query.AwaitSearch(ctx, s)
}

// QueryAsync registers a search and returns immediately with the handle,
// letting the caller poll Done/Results instead of blocking in Query.
func (e *Engine) QueryAsync(ctx context.Context, params query.SearchParams) (*query.Search, error) {
	return e.registerSearch(ctx, params)
}

func (e *Engine) registerSearch(ctx context.Context, params query.SearchParams) (*query.Search, error) {
	var s *query.Search
	action := scheduler.NewSyncAction(scheduler.ActionFunc(func(context.Context) error {
		s = e.query.Search(params)
		return nil
	}))
	if err := e.sched.EnqueueWait(ctx, action); err != nil {
		return nil, err
	}
	if err := action.Wait(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// BrowseNew starts a continuous browse for (service, protocol), invoking
// notifier every time the result set changes (spec §6 "browse_new(service,
// proto, notifier)").
func (e *Engine) BrowseNew(ctx context.Context, service, protocol string, notifier query.BrowseNotifier) (*query.Browse, error) {
	var b *query.Browse
	err := e.syncAction(ctx, func() error {
		b = e.query.BrowseNew(service, protocol, notifier)
		return nil
	})
	return b, err
}

// BrowseDelete stops the browse for (service, protocol), reporting
// whether one was running.
func (e *Engine) BrowseDelete(ctx context.Context, service, protocol string) (bool, error) {
	var ok bool
	err := e.syncAction(ctx, func() error {
		ok = e.query.BrowseDelete(service, protocol)
		return nil
	})
	return ok, err
}
