// Package logging provides structured logging for mob builds.
//
// This package wraps Go's log/slog behind mob's numeric level scheme and
// splits output between two sinks: a human-readable console stream and an
// optional JSON file for post-hoc analysis. Each sink filters at its own
// level, so a quiet console can coexist with a verbose file log.
//
// # Features
//
//   - Numeric log levels 0 (silent) through 6 (dump)
//   - Text-formatted console output without timestamps
//   - JSON-formatted file output via slog
//   - Independent console and file level thresholds
//   - Context propagation (task name, phase)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//
// # Log Levels
//
// Levels are integers matching the -l command line flag:
//
//   - [LevelSilent] (0): no output
//   - [LevelError] (1): errors only
//   - [LevelWarning] (2): warnings and errors
//   - [LevelInfo] (3): general progress (default)
//   - [LevelDebug] (4): per-step detail
//   - [LevelTrace] (5): command lines and their locations
//   - [LevelDump] (6): full command output
//
// Trace and dump have no slog equivalent and map to custom levels below
// slog.LevelDebug, rendered as TRACE and DUMP.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses slog internally, and the [RotatingWriter] type uses a mutex to
// protect file operations during rotation. Child loggers created via With*
// methods share the underlying sinks safely.
//
// # Basic Usage
//
// Create a logger from resolved options:
//
//	logger, err := logging.New(logging.Options{
//	    OutputLevel: 3,
//	    FileLevel:   5,
//	    FilePath:    "mob.log",
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("fetching", "task", "modorganizer-uibase")
//	logger.Error("clone failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	taskLogger := logger.WithTask("usvfs")
//	phaseLogger := taskLogger.WithPhase("build")
//
//	// All logs from phaseLogger carry task and phase
//	phaseLogger.Debug("configuring", "generator", "Ninja")
//
// # Log Rotation
//
// File logs rotate to prevent unbounded growth:
//
//	opts := logging.Options{
//	    OutputLevel: 3,
//	    FileLevel:   6,
//	    FilePath:    "mob.log",
//	    Rotation: logging.RotationConfig{
//	        MaxSizeMB:  10,
//	        MaxBackups: 3,
//	        Compress:   true,
//	    },
//	}
//
// Rotated files are named mob.log.1, mob.log.2, etc., where .1 is the most
// recent backup. With compression enabled they become mob.log.1.gz, etc.
//
// # Testing
//
// For testing, use [Nop] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.Nop()
//	    // Use logger without creating files
//	}
package logging
