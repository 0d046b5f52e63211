// Package retry provides delay strategies, attempt budgets and retry logic
// for browser-driven scraping.
//
// Delay strategies implement BackoffStrategy and are used in two places: the
// pause between scrolls of a search page (UniformJitter) and the pause between
// failed browser launches (ExponentialBackoff).
//
//	err := retry.Do(func() error {
//		s, err = launcher.Launch(ctx)
//		return err
//	}, &retry.Config{
//		MaxAttempts: 2,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//		Context:     ctx,
//	})
//
// Attempt budgets implement AttemptPolicy and bound how many capture cycles a
// worker runs against one page:
//
//	policy := retry.FixedAttempts{Max: 10}
//	policy := retry.ProgressAttempts{Base: 10, HardMax: 30}
package retry
