package host

import "sync"

// Recorder is a Host that keeps everything in memory. The TUI renders from
// it and tests assert against it.
type Recorder struct {
	mu       sync.Mutex
	lines    []string
	infos    []string
	errors   []string
	progress []string
	reveals  int
	status   []*RecordedStatus
	onChange func()
}

// NewRecorder returns an empty recorder. onChange, when set, runs after every
// mutation.
func NewRecorder(onChange func()) *Recorder {
	return &Recorder{onChange: onChange}
}

func (r *Recorder) AppendLine(line string) { r.update(func() { r.lines = append(r.lines, line) }) }
func (r *Recorder) RevealOutput()          { r.update(func() { r.reveals++ }) }
func (r *Recorder) ShowInfo(msg string)    { r.update(func() { r.infos = append(r.infos, msg) }) }
func (r *Recorder) ShowError(msg string)   { r.update(func() { r.errors = append(r.errors, msg) }) }

func (r *Recorder) NewStatus() Status {
	s := &RecordedStatus{r: r, visible: true}
	r.update(func() { r.status = append(r.status, s) })
	return s
}

// WithProgress records title as active until done closes.
func (r *Recorder) WithProgress(title string, done <-chan struct{}) {
	r.update(func() { r.progress = append(r.progress, title) })
	go func() {
		<-done
		r.update(func() {
			for i, p := range r.progress {
				if p == title {
					r.progress = append(r.progress[:i], r.progress[i+1:]...)
					break
				}
			}
		})
	}()
}

func (r *Recorder) update(fn func()) {
	r.mu.Lock()
	fn()
	cb := r.onChange
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Lines returns a copy of the output log.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Infos returns the information messages shown so far.
func (r *Recorder) Infos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.infos...)
}

// Errors returns the error messages shown so far.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// Progress returns the titles of progress indicators still active.
func (r *Recorder) Progress() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.progress...)
}

// Reveals counts RevealOutput calls.
func (r *Recorder) Reveals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reveals
}

// Status returns the most recent visible status item's text and tone.
func (r *Recorder) Status() (text string, tone Tone, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.status) - 1; i >= 0; i-- {
		s := r.status[i]
		if s.visible {
			return s.text, s.tone, true
		}
	}
	return "", ToneNormal, false
}

// RecordedStatus is a status item owned by a Recorder.
type RecordedStatus struct {
	r       *Recorder
	text    string
	tone    Tone
	visible bool
}

func (s *RecordedStatus) Set(text string, tone Tone) {
	s.r.update(func() { s.text, s.tone = text, tone })
}

func (s *RecordedStatus) Hide() {
	s.r.update(func() { s.visible = false })
}
