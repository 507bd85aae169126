package uploadclient

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	progressBarWidth     = 32
	progressRenderPeriod = 120 * time.Millisecond
)

// progressBar рисует ASCII-индикатор передачи чанка. nil-бар ничего не делает.
type progressBar struct {
	out           io.Writer
	prefix        string
	total         int64
	current       int64
	lastRender    time.Time
	lastLineWidth int
	finished      bool
	mu            sync.Mutex
}

func newProgressBar(out io.Writer, prefix string, total int64) *progressBar {
	if out == nil {
		return nil
	}

	return &progressBar{
		out:    out,
		prefix: prefix,
		total:  total,
	}
}

func (p *progressBar) AddBytes(n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.current += n
	p.mu.Unlock()
	p.render(false)
}

func (p *progressBar) render(force bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	now := time.Now()
	if !force && now.Sub(p.lastRender) < progressRenderPeriod {
		p.mu.Unlock()
		return
	}

	line := p.lineLocked()
	padding := p.paddingLocked(len(line))
	p.lastRender = now
	p.mu.Unlock()

	fmt.Fprintf(p.out, "\r%s%s", line, padding)
}

func (p *progressBar) lineLocked() string {
	var builder strings.Builder
	builder.Grow(len(p.prefix) + 64)
	builder.WriteString(p.prefix)
	builder.WriteByte(' ')

	if p.total <= 0 {
		builder.WriteString(humanBytes(p.current))
		builder.WriteString(" sent")
		return builder.String()
	}

	ratio := min(float64(p.current)/float64(p.total), 1)
	filled := min(int(ratio*float64(progressBarWidth)+0.5), progressBarWidth)
	builder.WriteByte('[')
	builder.WriteString(strings.Repeat("=", filled))
	builder.WriteString(strings.Repeat(" ", progressBarWidth-filled))
	builder.WriteString("] ")
	fmt.Fprintf(&builder, "%3d%% ", int(ratio*100+0.5))
	builder.WriteString(humanBytes(p.current))
	builder.WriteByte('/')
	builder.WriteString(humanBytes(p.total))

	return builder.String()
}

// paddingLocked затирает хвост предыдущей, более длинной строки.
func (p *progressBar) paddingLocked(width int) string {
	prev := p.lastLineWidth
	p.lastLineWidth = width
	if prev > width {
		return strings.Repeat(" ", prev-width)
	}
	return ""
}

func (p *progressBar) Finish(note string) {
	p.complete(" ✓"+note, nil)
}

func (p *progressBar) Fail(err error) {
	p.complete("", err)
}

func (p *progressBar) complete(suffix string, err error) {
	if p == nil {
		return
	}

	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.finished = true
	if err != nil {
		suffix = fmt.Sprintf(" ✗ %v", err)
	}
	line := p.lineLocked() + suffix
	padding := p.paddingLocked(len(line))
	p.mu.Unlock()

	fmt.Fprintf(p.out, "\r%s%s\n", line, padding)
}

type progressWriter struct {
	bar *progressBar
}

func (w progressWriter) Write(p []byte) (int, error) {
	w.bar.AddBytes(int64(len(p)))
	return len(p), nil
}

// progressReadCloser считает байты скачиваемого содержимого.
type progressReadCloser struct {
	inner io.ReadCloser
	bar   *progressBar
	done  bool
}

func newProgressReadCloser(inner io.ReadCloser, bar *progressBar) io.ReadCloser {
	if bar == nil {
		return inner
	}

	return &progressReadCloser{
		inner: inner,
		bar:   bar,
	}
}

func (p *progressReadCloser) Read(b []byte) (int, error) {
	n, err := p.inner.Read(b)
	p.bar.AddBytes(int64(n))
	if err != nil {
		p.finish(err)
	}
	return n, err
}

func (p *progressReadCloser) Close() error {
	err := p.inner.Close()
	p.finish(err)
	return err
}

func (p *progressReadCloser) finish(err error) {
	if p.done {
		return
	}
	p.done = true
	if err != nil && err != io.EOF {
		p.bar.Fail(err)
		return
	}
	p.bar.Finish("")
}

func humanBytes(v int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	value := float64(v)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", v, units[unit])
	}
	return fmt.Sprintf("%.1f %s", value, units[unit])
}

// syncWriter сериализует вывод индикаторов параллельных чанков.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
