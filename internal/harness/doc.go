// Package harness runs scripted screen-reader scenarios.
//
// A scenario is a YAML file naming a simulated accessibility tree, a list
// of steps that mutate the tree or issue user commands, and assertions
// about what was spoken. Each scenario runs against a fresh runtime with
// deterministic helpers:
//
//   - a manual clock that never advances, so every burst coalesces the same way
//   - sequential buffer and session ids
//   - an in-memory journal
//   - a speech driver that completes every utterance immediately
//
// After every step the runtime is settled, so the transcript attributes
// each dispatched event and utterance to the step that caused it.
//
// Example scenario:
//
//	name: checkbox_toggle
//	description: Activating the focused check box announces its new state
//	tree: ../trees/page.yaml
//	steps:
//	  - action: focus
//	    node: agree
//	  - action: command
//	    command: activate
//	assertions:
//	  - type: spoken
//	    texts: ["I agree check box not checked", "checked"]
//
// Golden transcripts live in testdata/golden and are regenerated with:
//
//	go test ./internal/harness -update
package harness
