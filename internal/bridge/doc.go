/*
Package bridge lets the host drive a script running inside an isolated
execution context (a web view) that has no synchronous return channel.

# Protocol

The host wraps a fragment of script in a Job. The job's payload runs the
fragment inside the context and then calls the context's post(id, value)
global, which the transport delivers back to the host as a Message. The
Registry correlates that message with the caller waiting on the same id.

	host                               execution context
	----                               -----------------
	Builder.Build(fragment)  -> Job
	Invoker.Call(ctx, job)
	  Registry.Register(id)
	  Inject(payload)       ------->   run fragment
	  Pending.Wait(ctx)                post(id, response)
	Invoker.Deliver(msg)    <-------   (transport callback)
	  Registry.Resolve(id)

# Failure modes

  - No context attached: Call returns nil immediately, nothing registered.
  - Exception inside the fragment: caught in the sandbox, logged there when
    the payload was built in dev mode, and no message is ever posted. The
    caller's wait does not resolve.
  - Message without a value: logged as a warning, returned as nil.

Call has no timeout or retry of its own. Callers that need fail-fast
behavior pass a context with a deadline; when it expires the slot is
forgotten and the context error returned. Slots whose callers wait on a
context that never ends can be bounded with Registry.Evict or RunSweeper.
Evicted slots are removed, not resolved.
*/
package bridge
