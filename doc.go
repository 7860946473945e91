// Package termengine provides the core of a VT220/xterm-compatible terminal:
// a packed cell grid, an escape sequence parser, a mouse and key encoder and a
// screen model with paced, time-sliced processing of child output.
//
// It has no display. Hosts feed it the bytes a child process writes and receive
// batched render notifications describing which rows changed.
//
// # Quick Start
//
//	term := termengine.New()
//	term.WriteString("\x1b[31mHello \x1b[32mWorld\x1b[0m!")
//	fmt.Println(term.String()) // "Hello World!"
//
// # Architecture
//
// The package is organized around these core types:
//
//   - [Terminal]: the session. Queues writes, runs the parser and owns the screens
//   - [Screen]: one page of rows (primary or alternate) with tab stops
//   - [Row]: a fixed-width line of packed 26-byte cell records
//   - [Cell]: the logical view of one record
//   - [Parser]: the byte-level state machine
//   - [Encoder]: mouse report encoding
//
// # Write Pacing
//
// Write and Feed append to a queue. Processing happens in slices driven by a
// [Scheduler]: each slice parses until its time budget is spent, flushes one
// render notification and reschedules if data remains. The default
// [SyncScheduler] processes everything before Write returns:
//
//	term := termengine.New(termengine.WithSize(24, 80))
//	cmd := exec.Command("ls", "-la", "--color")
//	cmd.Stdout = term
//	cmd.Run()
//
// Hosts with an event loop use [LoopScheduler] and watch the buffer status for
// backpressure:
//
//	loop := termengine.NewLoopScheduler(64)
//	go loop.Run(ctx)
//
//	term := termengine.New(
//	    termengine.WithScheduler(loop),
//	    termengine.WithWriteBuffer(flow),   // BufferSize(status) on every change
//	    termengine.WithRender(renderer),    // Render(ev) once per slice
//	)
//
// # Screens
//
// The primary screen feeds scrollback; the alternate screen (CSI ?1049h) does
// not. Rows are materialized lazily, so [Terminal.MaterializedRows] may be less
// than [Terminal.Rows].
//
// # Providers
//
// Providers receive terminal events. All are optional with no-op defaults:
//
//   - [ResponseProvider]: replies (DSR, DA, DECRQSS) plus key and mouse input
//   - [RenderProvider]: batched dirty row ranges and scrollback lines
//   - [WriteBufferProvider]: remaining queue capacity
//   - [BellProvider], [TitleProvider], [ClipboardProvider]
//   - [ScrollbackProvider]: stores lines scrolled off the primary screen
//   - [ShellIntegrationProvider]: prompt and command marks (OSC 133/633)
//   - [WorkingDirectoryProvider]: OSC 7 reports
//   - [RecordingProvider]: captures raw input
//
// # Middleware
//
// Middleware intercepts terminal operations:
//
//	mw := &termengine.Middleware{
//	    Bell: func(next func()) {
//	        // Don't call next() to suppress the bell
//	    },
//	}
//	term := termengine.New(termengine.WithMiddleware(mw))
//
// # Input
//
// Key presses, pastes, focus changes and mouse events are encoded according to
// the modes the application enabled and written to the response provider:
//
//	term.KeyDown(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
//	term.Paste("echo hi\n")
//	term.MouseDown(tcell.NewEventMouse(3, 4, tcell.ButtonPrimary, tcell.ModNone))
//
// # Application Mode
//
// A registered [ApplicationModeHandler] receives the payload of
// ESC & cookie ; params BEL ... NUL sequences when the cookie matches the one
// set with [WithApplicationCookie]. The handler may pause processing or abort
// and push bytes back into the stream.
//
// # Configuration
//
// [Config] is the TOML form of the options:
//
//	cfg, err := termengine.LoadConfig("term.toml")
//	if err != nil {
//	    return err
//	}
//	opts, err := cfg.Options()
//	if err != nil {
//	    return err
//	}
//	term := termengine.New(opts...)
//
// # Thread Safety
//
// Accessors are safe to call from any goroutine. Processing runs on the
// scheduler's goroutine; provider callbacks and handlers run there too and must
// not call Write.
package termengine
