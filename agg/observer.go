package agg

// Observer receives progress events from an aggregation run. Implementations
// must be cheap; the engine calls them inline between blocking I/O steps.
type Observer interface {
	// DatasetCreated fires once per created dataset with its planned chunks.
	DatasetCreated(path string, chunks []int)
	// ShardLoaded fires after each shard is appended to a target.
	ShardLoaded(target, shard string, rows int)
	// TargetDone fires when a target's full shard family has been loaded.
	TargetDone(target string, rows int)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) DatasetCreated(string, []int) {}

func (NopObserver) ShardLoaded(string, string, int) {}

func (NopObserver) TargetDone(string, int) {}
