// Package engine coordinates local mutations with the remote catalog.
//
// Every write goes through the same pipeline: validate, apply
// optimistically to the local store, then attempt the remote call. A
// confirmed call triggers a pull of the affected entity kinds so the
// server's view overwrites the optimistic one. A connectivity failure
// leaves the optimistic state in place and records the operation in
// the durable pending queue for later replay. Any other failure rolls
// the local store back to its pre-mutation state and surfaces the
// error to the caller.
//
// RunCycle drains the pending queue in FIFO order and refreshes the
// local snapshot from the server. Runner invokes it periodically and
// holds a file lock so only one process drains at a time.
package engine
