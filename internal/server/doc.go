// Package server hosts the Fiber HTTP service that answers identifier lookups
// for long-running validators. It wires request ids, panic recovery and access
// logging around the dataset routes registered by the routes package; every
// lookup goes through the same Resolver a one-shot CLI run uses, so cache and
// freshness behaviour is identical in both modes.
package server
