// Package domain defines the lending entities, their state machines, and the
// library policy that governs them.
package domain
