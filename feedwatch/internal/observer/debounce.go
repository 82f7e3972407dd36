package observer

import "time"

// debounceConfig controls the batching behaviour.
type debounceConfig struct {
	// Window is the debounce time. Default: 250ms.
	Window time.Duration
	// MaxBuffer flushes immediately when this many records accumulate.
	// Default: 500.
	MaxBuffer int
}

func (dc *debounceConfig) defaults() {
	if dc.Window <= 0 {
		dc.Window = 250 * time.Millisecond
	}
	if dc.MaxBuffer <= 0 {
		dc.MaxBuffer = 500
	}
}

// debouncer buffers raw item markup and emits a batch when the window
// expires or the buffer fills. The host's virtualised scrolling detaches
// and re-inserts identical nodes during fast scrolls; flush drops exact
// markup duplicates within one batch before emitting.
type debouncer struct {
	cfg     debounceConfig
	records []string
	timer   *time.Timer
	timerCh <-chan time.Time
	flushFn func([]string)
}

func newDebouncer(cfg debounceConfig, flushFn func([]string)) *debouncer {
	cfg.defaults()
	return &debouncer{
		cfg:     cfg,
		records: make([]string, 0, cfg.MaxBuffer),
		flushFn: flushFn,
	}
}

// add pushes a record into the buffer. Returns true if an immediate
// flush was triggered (buffer full).
func (d *debouncer) add(html string) bool {
	d.records = append(d.records, html)

	if len(d.records) >= d.cfg.MaxBuffer {
		d.flush()
		return true
	}

	// (Re)start the window timer.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.cfg.Window)
	d.timerCh = d.timer.C
	return false
}

// timerC returns the channel that fires when the debounce window expires.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// flush emits the buffered records with duplicates removed, then resets.
func (d *debouncer) flush() {
	if len(d.records) == 0 {
		return
	}

	d.flushFn(dedupe(d.records))

	d.records = d.records[:0]
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
}

// dedupe removes exact duplicates while preserving first-arrival order.
func dedupe(records []string) []string {
	if len(records) <= 1 {
		return records
	}

	seen := make(map[string]struct{}, len(records))
	result := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		result = append(result, r)
	}
	return result
}
