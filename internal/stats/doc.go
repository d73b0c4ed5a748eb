// Package stats owns the training corpus and the adjacent-pair statistics
// that drive BPE merge selection.
//
// The corpus is a single arena of symbol slots with prev/next links, so a
// merge collapses two slots into the left one without moving anything.
// Every pair keeps its count and a list of slot positions where it was seen;
// the lists live in one shared node arena and are validated lazily when the
// pair is merged. Applying a merge therefore costs O(occurrences of the
// pair) instead of a full rescan.
package stats
