package termengine

// sliceChunk is how many bytes are parsed between clock checks.
const sliceChunk = 4096

// BufferStatus is the remaining write queue capacity in bytes.
// Producers should stop writing while it is not positive.
type BufferStatus int

// Write queues child output for processing. It implements io.Writer.
// With the default SyncScheduler the data is fully processed before Write returns.
func (t *Terminal) Write(p []byte) (int, error) {
	if _, err := t.feed(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Feed queues child output and returns the remaining buffer capacity.
// Data fed after Close is dropped.
func (t *Terminal) Feed(p []byte) BufferStatus {
	status, _ := t.feed(p)
	return status
}

func (t *Terminal) feed(p []byte) (BufferStatus, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrTerminalClosed
	}
	if len(p) == 0 {
		status := t.bufferStatusLocked()
		t.mu.Unlock()
		return status, nil
	}

	t.recordingProvider.Record(p)
	buf := make([]byte, len(p))
	copy(buf, p)
	t.queue = append(t.queue, buf)
	t.queued += len(buf)
	status := t.bufferStatusLocked()
	provider := t.writeBufferProvider
	t.mu.Unlock()

	provider.BufferSize(status)
	t.requestSlice()
	return t.BufferStatus(), nil
}

// BufferStatus returns the remaining write queue capacity.
func (t *Terminal) BufferStatus() BufferStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bufferStatusLocked()
}

func (t *Terminal) bufferStatusLocked() BufferStatus {
	return BufferStatus(t.maxBufferSize - t.queued)
}

// Pending returns the number of queued bytes not yet processed.
func (t *Terminal) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.queued
}

// Pause stops processing after the current slice. Queued data is kept.
func (t *Terminal) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.paused = true
	t.cancelSliceLocked()
}

// Resume restarts processing and re-emits the buffer status.
func (t *Terminal) Resume() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.paused = false
	status := t.bufferStatusLocked()
	provider := t.writeBufferProvider
	t.mu.Unlock()

	provider.BufferSize(status)
	t.requestSlice()
}

// Paused returns true while processing is paused.
func (t *Terminal) Paused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

// Close cancels pending work, drops queued data and detaches all providers.
// Later writes return ErrTerminalClosed.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.cancelSliceLocked()
	t.queue = nil
	t.queued = 0

	t.responseProvider = NoopResponse{}
	t.bellProvider = NoopBell{}
	t.titleProvider = NoopTitle{}
	t.renderProvider = NoopRender{}
	t.writeBufferProvider = NoopWriteBuffer{}
	t.clipboardProvider = NoopClipboard{}
	t.workingDirectoryProvider = NoopWorkingDirectory{}
	t.recordingProvider = NoopRecording{}
	t.shellIntegrationProvider = NoopShellIntegration{}
	t.appHandler = nil
	return nil
}

func (t *Terminal) cancelSliceLocked() {
	if t.cancelSlice != nil {
		t.cancelSlice()
		t.cancelSlice = nil
	}
	t.scheduled = false
	t.sliceGen++
}

// requestSlice schedules a processing slice if data is queued and none is pending.
func (t *Terminal) requestSlice() {
	t.mu.Lock()
	if t.closed || t.paused || t.scheduled || t.queued == 0 {
		t.mu.Unlock()
		return
	}
	t.scheduled = true
	t.sliceGen++
	gen := t.sliceGen
	sched := t.scheduler
	t.mu.Unlock()

	cancel := sched.Schedule(0, t.processSlice)

	t.mu.Lock()
	if t.scheduled && t.sliceGen == gen {
		t.cancelSlice = cancel
	}
	t.mu.Unlock()
}

// processSlice parses queued data until the slice budget is spent, then flushes
// render state, reports the buffer status and reschedules if data remains.
func (t *Terminal) processSlice() {
	t.mu.Lock()
	t.scheduled = false
	t.cancelSlice = nil
	if t.closed || t.paused {
		t.mu.Unlock()
		return
	}
	sched := t.scheduler
	budget := t.sliceBudget
	t.mu.Unlock()

	t.processing.Lock()
	deadline := sched.Now().Add(budget)
	for {
		chunk, ok := t.nextChunk()
		if !ok {
			break
		}

		res := t.parser.Parse(chunk)
		t.requeue(chunk[res.consumed:], res.pushBack)
		if res.paused {
			t.mu.Lock()
			t.paused = true
			t.mu.Unlock()
			break
		}
		if !sched.Now().Before(deadline) {
			break
		}
	}
	t.processing.Unlock()

	t.Flush()

	t.mu.Lock()
	closed := t.closed
	status := t.bufferStatusLocked()
	provider := t.writeBufferProvider
	t.mu.Unlock()

	if !closed {
		provider.BufferSize(status)
	}
	t.requestSlice()
}

// nextChunk takes up to sliceChunk bytes from the front of the queue.
func (t *Terminal) nextChunk() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.paused || len(t.queue) == 0 {
		return nil, false
	}
	head := t.queue[0]
	n := min(len(head), sliceChunk)
	chunk := head[:n]
	if n == len(head) {
		t.queue[0] = nil
		t.queue = t.queue[1:]
	} else {
		t.queue[0] = head[n:]
	}
	t.queued -= n
	return chunk, true
}

// requeue puts unconsumed bytes back at the front of the queue, after pushBack.
func (t *Terminal) requeue(rest, pushBack []byte) {
	if len(rest)+len(pushBack) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	buf := make([]byte, 0, len(pushBack)+len(rest))
	buf = append(buf, pushBack...)
	buf = append(buf, rest...)
	t.queue = append([][]byte{buf}, t.queue...)
	t.queued += len(buf)
}

// WriteString queues a string of child output. See Write.
func (t *Terminal) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}
