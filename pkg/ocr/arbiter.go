package ocr

import (
	"context"
	"image"
	"log"
	"sync"
)

// Decision records both readings and the one that was kept.
type Decision struct {
	Text   string `json:"text"`
	Chosen Result `json:"chosen"`
	A      Result `json:"a"`
	B      Result `json:"b"`
}

// Arbiter runs two engines over the same image and keeps the more confident
// reading. Ties go to A.
type Arbiter struct {
	A, B    Engine
	Logger  *log.Logger
	Verbose bool
}

func NewArbiter(a, b Engine, logger *log.Logger) *Arbiter {
	if logger == nil {
		logger = log.Default()
	}
	return &Arbiter{A: a, B: b, Logger: logger}
}

// Extract never fails: an engine error or a cancelled context is logged and
// counts as an empty zero-confidence reading for that engine.
func (a *Arbiter) Extract(ctx context.Context, img image.Image, mode Mode) Decision {
	if img == nil {
		return Decision{}
	}
	var ra, rb Result
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); ra = a.call(ctx, a.A, img, mode) }()
	go func() { defer wg.Done(); rb = a.call(ctx, a.B, img, mode) }()
	wg.Wait()

	d := Decision{A: ra, B: rb, Chosen: rb}
	if ra.Confidence >= rb.Confidence {
		d.Chosen = ra
	}
	d.Text = d.Chosen.Text
	a.logV("ocr mode=%s chosen=%s text=%q a_conf=%.1f b_conf=%.1f", mode, d.Chosen.Engine, snippet(d.Text, 80), ra.Confidence, rb.Confidence)
	return d
}

func (a *Arbiter) call(ctx context.Context, e Engine, img image.Image, mode Mode) Result {
	if e == nil {
		return Result{}
	}
	type out struct {
		res Result
		err error
	}
	var o out
	if ctx.Done() == nil {
		o.res, o.err = e.Extract(ctx, img, mode)
	} else {
		ch := make(chan out, 1)
		go func() {
			r, err := e.Extract(ctx, img, mode)
			ch <- out{r, err}
		}()
		select {
		case o = <-ch:
		case <-ctx.Done():
			o.err = ctx.Err()
		}
	}
	if o.err != nil {
		a.Logger.Printf("WARN ocr engine=%s mode=%s failed: %v", e.Name(), mode, o.err)
		return Result{Engine: e.Name()}
	}
	o.res.Engine = e.Name()
	if o.res.Confidence < 0 {
		o.res.Confidence = 0
	}
	return o.res
}

func (a *Arbiter) logV(format string, args ...any) {
	if a.Verbose {
		a.Logger.Printf(format, args...)
	}
}
