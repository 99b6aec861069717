// Package orchestrator runs the introspect → emit → write or diff pipeline
// behind the sync and check commands. Every run is configured explicitly
// through Options and a Request; nothing is read from globals.
package orchestrator
