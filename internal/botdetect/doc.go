// Package botdetect classifies pixel fetches as human or automated.
//
// The mechanism is a fixed two-step, first-match policy over a user-agent
// substring list and then a source-IP prefix list. The policy itself is data:
// Rules are loaded from YAML (an embedded default, optionally replaced by a
// file at startup) so the lists can grow without touching the algorithm.
//
// Classification is a best-effort heuristic for open reporting, not a
// security boundary.
package botdetect
