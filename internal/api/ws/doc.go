/*
Package ws attaches a remote web view to the bridge over a WebSocket.

The connection itself is the execution context: jobs are written as

	{"type": "inject", "script": "..."}

and the web view answers each with

	{"type": "response", "id": "fn_...", "value": ...}

Web view console output may be forwarded as {"type": "log", "level",
"message"}. The most recent connection is the attached context; when it
closes it detaches itself unless another connection has replaced it.
*/
package ws
