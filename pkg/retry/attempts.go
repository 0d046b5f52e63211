package retry

// AttemptPolicy bounds how many capture cycles a worker may run.
// Allow is consulted before every cycle; attempt is the number of cycles
// already completed and stalled is how many of the most recent cycles in a
// row admitted no new records.
type AttemptPolicy interface {
	Allow(attempt, stalled int) bool
}

// FixedAttempts allows exactly Max cycles regardless of progress.
type FixedAttempts struct {
	Max int
}

func (f FixedAttempts) Allow(attempt, stalled int) bool {
	return attempt < f.Max
}

// ProgressAttempts keeps going while cycles keep finding new records. It stops
// after Base consecutive unproductive cycles or HardMax cycles in total,
// whichever comes first. A page that never yields anything therefore gets the
// same Base cycles a FixedAttempts{Max: Base} policy would give it.
type ProgressAttempts struct {
	Base    int
	HardMax int
}

func (p ProgressAttempts) Allow(attempt, stalled int) bool {
	hardMax := p.HardMax
	if hardMax < p.Base {
		hardMax = p.Base
	}
	return attempt < hardMax && stalled < p.Base
}

// PolicyFor builds the policy selected by configuration.
func PolicyFor(maxAttempts int, extendOnProgress bool, hardMax int) AttemptPolicy {
	if extendOnProgress {
		return ProgressAttempts{Base: maxAttempts, HardMax: hardMax}
	}
	return FixedAttempts{Max: maxAttempts}
}
