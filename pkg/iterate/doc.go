// Package iterate drives an unbounded sequence of steps, each of which may
// complete synchronously or asynchronously, without growing the call stack.
//
// A Step reports one Action per call:
// - Idle: nothing to do now; the step arranged a later call to Iterate
// - Scheduled: an asynchronous operation was started; its completion calls
//   Succeeded or Failed on the Iterator
// - Succeeded: the whole iteration is done
//
// Completions that arrive while the step is still on the stack (for example a
// sink that completes inline) are recorded and picked up by the frame that is
// already looping, so N synchronous completions cost constant stack depth.
//
// The Iterator delivers exactly one terminal notification: first to the
// step's own Completer hooks, then to the outer callback.Callback.
package iterate
