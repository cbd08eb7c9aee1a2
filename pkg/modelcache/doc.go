// Package modelcache keeps at most one loaded model per slot and arbitrates
// concurrent access to it.
//
// A Cache moves between EMPTY and LOADED(key). Acquiring the loaded key is a hit and
// returns a Lease on the shared value. Acquiring another key is a miss: the cache
// waits until every outstanding Lease on the current value is released, checks
// accelerator memory, and replaces the value. A value is never closed while a Lease
// on it is held.
//
//	lease, err := cache.Acquire(ctx, key)
//	if err != nil {
//	    return err
//	}
//	defer lease.Release()
//	scores, err := lease.Value().Classify(ctx, pairs, 128)
//
// Manager bundles the classifier and encoder caches owned by one engine.
package modelcache
