package progress

import (
	"io"
	"strconv"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar renders progress as an interactive terminal bar.
type Bar struct {
	writer      io.Writer
	description string

	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	failed int
}

// NewBar creates a bar that draws to w.
func NewBar(w io.Writer, description string) *Bar {
	return &Bar{writer: w, description: description}
}

func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if total <= 0 {
		return
	}
	b.failed = 0
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.writer),
		progressbar.OptionSetDescription(b.description),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (b *Bar) Add(succeeded, failed int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	if failed > 0 {
		b.failed += failed
		b.bar.Describe(b.description + " (" + strconv.Itoa(b.failed) + " failed)")
	}
	_ = b.bar.Add(succeeded + failed)
}

func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	b.bar = nil
}
