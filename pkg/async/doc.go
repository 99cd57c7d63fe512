// Package async runs a function in the background and hands back a
// typed Future for its result.
//
//	tpl := async.Go(ctx, func(ctx context.Context) (templates.Template, error) {
//		return store.Get(ctx, code)
//	})
//	// ... other work ...
//	t, err := tpl.Await(ctx)
package async
