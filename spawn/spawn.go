// Package spawn abstracts the one external collaborator the channel core
// depends on: something that can run a closure on a background thread.
package spawn

// Spawner runs fn on some other thread of execution and returns without
// waiting for it to finish.
type Spawner interface {
	Go(fn func())
}

type goroutineSpawner struct{}

func (goroutineSpawner) Go(fn func()) {
	go fn()
}

// Default spawns fn on a plain goroutine. It is the Spawner used by every
// constructor in this module unless a caller supplies its own (tests use
// spawnmock.Spawner to make background dispatch observable).
var Default Spawner = goroutineSpawner{}
