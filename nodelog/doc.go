// Package nodelog configures process logging for multi-node training jobs so that output from
// every node is visible, attributed and never lost in a buffer.
//
// # Setup
//
// Call Setup once at process start:
//
//	lg, err := nodelog.Setup(nodelog.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer lg.Close()
//
// Setup wraps stdout and stderr in line-buffered writers, exports the unbuffered-output and
// fault-handler flags for child processes, reads the node rank from NODE_RANK ("unknown" when
// unset) and installs an Info-level handler writing
//
//	[NODE_<rank>] 2006-01-02 15:04:05,000 - <logger> - <LEVEL> - <message> key=value...
//
// to the console and to a per-node log file.
//
// # Printer
//
// Printer is the node-tagged replacement for bare prints. Every call is prefixed with
// [NODE_<rank>][<timestamp>] and flushed to stdout immediately. Pass it explicitly or through
// the context:
//
//	ctx = nodelog.NewPrinterContext(ctx, lg.Printer())
//	nodelog.PrinterFromContext(ctx).Println("step", step, "loss", loss)
//
// # Registry
//
// Loggers are registered by name in a Registry instead of being discovered. Libraries may
// register before Setup (with their own level and no sinks); Setup then raises every registered
// logger to Info and gives sink-less loggers a console sink. Loggers registered after Setup keep
// whatever level they are registered with and write to the root sinks unless they opt out.
//
// # Context Propagation
//
// NewContext and FromContext carry a *slog.Logger through context.Context:
//
//	ctx = nodelog.NewContext(ctx, lg.Logger("trainer"))
//	nodelog.FromContext(ctx).Info("epoch done", "epoch", epoch)
//
// # Thread Safety
//
// Handlers, sinks and Printer are safe for concurrent use. Setup itself is not: call it once,
// before other goroutines start writing.
package nodelog
