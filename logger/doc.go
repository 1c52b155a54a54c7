// Package logger is the public API of lumber. Most users only need to
// import this package.
//
// Every entry point checks its severity flag against a level before
// doing any work: the logger's own LevelVar, or DefaultLevel when none
// was given, or the level passed with AtLevel. A message passes when
// level&flag != 0. Text producers and Printf-style formatting run only
// after the gate.
//
// Error entry points submit synchronously and return once every sink has
// the message; the other classes submit asynchronously. Sync and Async
// override this per call.
//
// The package-level functions delegate to Default(), which sends to
// pipeline.Default():
//
//	logger.Info("ready")
//	logger.Errorf("open %s: %v", path, err)
//	logger.Debug("cache miss", logger.WithContext(3), logger.WithTag(key))
//
// For custom configuration, use the Builder:
//
//	log := logger.NewBuilder().
//	    WithDispatcher(p).
//	    WithLevel(logger.LevelInfo).
//	    WithContext(7).
//	    Build()
//
// A Logger is immutable after construction. ForContext and ForTag return
// copies with a different default context code or tag.
package logger
