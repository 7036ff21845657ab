// Package services implements the driving port interfaces.
//
// It holds the local-first core: the RecordStore that batches writes over a
// driven record store, the ChangeBus and Notifier that announce changes,
// the per-type Collection API, the SyncEngine that runs push-pull cycles,
// the periodic Scheduler, and the Session that owns all of them for one
// store name and namespace.
package services
