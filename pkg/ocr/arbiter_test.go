package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeEngine struct {
	name  string
	res   Result
	err   error
	block bool
	calls atomic.Int32
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Extract(ctx context.Context, _ image.Image, _ Mode) (Result, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return Result{Text: "late", Confidence: 99}, nil
	}
	return f.res, f.err
}

func quietArbiter(a, b Engine) (*Arbiter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewArbiter(a, b, log.New(&buf, "", 0)), &buf
}

var blank = image.NewGray(image.Rect(0, 0, 4, 4))

func TestArbiterPrefersHigherConfidence(t *testing.T) {
	a := &fakeEngine{name: "a", res: Result{Text: "Lequlrus Wings", Confidence: 61}}
	b := &fakeEngine{name: "b", res: Result{Text: "Lequirus's Wings", Confidence: 88}}
	arb, _ := quietArbiter(a, b)

	d := arb.Extract(context.Background(), blank, ModeTitle)
	assert.Equal(t, "Lequirus's Wings", d.Text)
	assert.Equal(t, "b", d.Chosen.Engine)
	assert.Equal(t, 61.0, d.A.Confidence)
}

func TestArbiterTieFavorsA(t *testing.T) {
	a := &fakeEngine{name: "a", res: Result{Text: "from a", Confidence: 70}}
	b := &fakeEngine{name: "b", res: Result{Text: "from b", Confidence: 70}}
	arb, _ := quietArbiter(a, b)
	assert.Equal(t, "from a", arb.Extract(context.Background(), blank, ModeTrait).Text)

	// both empty: A still wins with empty text
	a.res, b.res = Result{}, Result{}
	d := arb.Extract(context.Background(), blank, ModeTrait)
	assert.Equal(t, "a", d.Chosen.Engine)
	assert.Equal(t, "", d.Text)
}

func TestArbiterEngineFailureIsZeroConfidence(t *testing.T) {
	a := &fakeEngine{name: "a", err: errors.New("tesseract crashed")}
	b := &fakeEngine{name: "b", res: Result{Text: "Max Health", Confidence: 12}}
	arb, logs := quietArbiter(a, b)

	d := arb.Extract(context.Background(), blank, ModeTrait)
	assert.Equal(t, "Max Health", d.Text)
	assert.Zero(t, d.A.Confidence)
	assert.Contains(t, logs.String(), "engine=a")
}

func TestArbiterNilImageSkipsEngines(t *testing.T) {
	a := &fakeEngine{name: "a"}
	b := &fakeEngine{name: "b"}
	arb, _ := quietArbiter(a, b)
	d := arb.Extract(context.Background(), nil, ModeTitle)
	assert.Equal(t, Decision{}, d)
	assert.Zero(t, a.calls.Load())
	assert.Zero(t, b.calls.Load())
}

func TestArbiterHonorsDeadline(t *testing.T) {
	a := &fakeEngine{name: "a", block: true}
	b := &fakeEngine{name: "b", res: Result{Text: "quick", Confidence: 40}}
	arb, _ := quietArbiter(a, b)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	d := arb.Extract(ctx, blank, ModeTitle)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "quick", d.Text)
	assert.Zero(t, d.A.Confidence)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "title", ModeTitle.String())
	assert.Equal(t, "trait", ModeTrait.String())
}
