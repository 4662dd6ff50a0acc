/*
Package webview provides an in-process execution context for bridge jobs.

# Overview

Runtime embeds a goja JavaScript VM and implements bridge.ExecutionContext,
so the invoker can drive it exactly as it drives a remote web view. It is
used for headless operation and as the editor stand-in in tests.

All VM access happens on a single loop goroutine. Inject only queues a
script; Execute queues one and waits for its completion value.

# Globals

  - post(id, value): forwards a job's response to the MessageHandler
  - logger(level, ...args): forwards to zap
  - window, Event, addEventListener, removeEventListener, dispatchEvent
  - document.querySelector and querySelectorAll over a lightweight DOM
  - setTimeout, clearTimeout, setImmediate scheduled onto the loop
  - console, when enabled

require, process, module and exports are removed.

# Usage Example

	rt, err := webview.New(webview.DefaultConfig(), invoker.Deliver, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	invoker.Attach(rt)
*/
package webview
