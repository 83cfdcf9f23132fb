// Package async runs depot's long-lived background tasks, such as the file
// watcher and the HTTP listeners, with panic recovery and structured error
// logging.
//
//	done := async.SafeGo(ctx, logger, 0, "file watcher", watcher.Run)
//
// A positive timeout bounds the task's context. Tasks ending with
// context.Canceled are logged at debug level only.
package async
