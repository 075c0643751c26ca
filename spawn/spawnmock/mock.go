/*
Copyright 2014 Workiva, LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

 http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package spawnmock provides a testify-mock Spawner so tests can observe
// and synchronize on background dispatch instead of racing real goroutines.
package spawnmock

import (
	"github.com/stretchr/testify/mock"

	"github.com/lemon-mint/go-chan/spawn"
)

var _ spawn.Spawner = (*Spawner)(nil)

// Spawner records calls to Go and, when GoChan is set, signals on it after
// every dispatched closure so a test can synchronize without sleeping.
type Spawner struct {
	mock.Mock
	GoChan chan bool
}

// Go satisfies spawn.Spawner. It records the call, runs fn synchronously
// (so assertions about fn's side effects don't race the test), then
// signals GoChan if the caller provided one.
func (m *Spawner) Go(fn func()) {
	m.Called()
	fn()
	if m.GoChan != nil {
		m.GoChan <- true
	}
}
