// Package ir defines the language-neutral intermediate representation shared
// by the introspector, both emitters and the drift validator. A Registry is
// built once per run and is read-only afterwards, so emitters can fan out over
// it without locking.
package ir
