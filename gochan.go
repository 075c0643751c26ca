package gochan

// This file exists for the same reason the teacher's datastructures.go
// did: so a consumer that only needs a dependency-manager anchor can
// import the root package and pull in every first-party collaborator
// without hunting down each subpackage individually.
import (
	_ "github.com/lemon-mint/go-chan/spawn"
)
