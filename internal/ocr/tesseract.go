package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements Engine on top of gosseract. Each recognition pass
// gets its own client so passes can run concurrently.
type Tesseract struct {
	languages   []string
	tessdataDir string

	// newClient is swapped out in tests.
	newClient func() *gosseract.Client
}

var _ Engine = (*Tesseract)(nil)

// NewTesseract builds a Tesseract engine. languages are Tesseract codes in
// priority order; an empty slice means English. tessdataDir may be empty to
// use the system default.
func NewTesseract(languages []string, tessdataDir string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{
		languages:   languages,
		tessdataDir: tessdataDir,
		newClient:   gosseract.NewClient,
	}
}

// Name identifies the backend.
func (t *Tesseract) Name() string { return "tesseract" }

// Languages returns the configured language codes.
func (t *Tesseract) Languages() []string { return t.languages }

// TessdataDir returns the configured tessdata directory, if any.
func (t *Tesseract) TessdataDir() string { return t.tessdataDir }

// Version returns the linked Tesseract version.
func (t *Tesseract) Version() string {
	client := t.newClient()
	defer client.Close()
	return client.Version()
}

// Ping runs a tiny end-to-end recognition to confirm the backend and its
// language data are usable.
func (t *Tesseract) Ping(ctx context.Context) error {
	probe := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range probe.Pix {
		probe.Pix[i] = 0xFF
	}
	if _, err := t.Recognize(ctx, probe, Options{PageSegMode: PSMSingleBlock}); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Recognize runs one OCR pass over img. The underlying Tesseract call
// cannot be interrupted; when ctx expires first the call keeps running in
// the background and its result is discarded.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, opts Options) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoded, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	type passResult struct {
		words []Word
		err   error
	}
	done := make(chan passResult, 1)

	go func() {
		words, recErr := t.recognize(encoded, opts)
		done <- passResult{words: words, err: recErr}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.words, res.err
	}
}

func (t *Tesseract) recognize(data []byte, opts Options) ([]Word, error) {
	client := t.newClient()
	defer client.Close()

	if t.tessdataDir != "" {
		if err := client.SetTessdataPrefix(t.tessdataDir); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(opts.PageSegMode.tesseract()); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	// Synthetic template crops carry no DPI metadata; without a hint
	// Tesseract warns and guesses badly on small text.
	if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), "300"); err != nil {
		return nil, fmt.Errorf("failed to set dpi: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: box.Confidence,
			Bounds:     BoundsFromRect(box.Box),
		})
	}
	return words, nil
}

func (m PageSegMode) tesseract() gosseract.PageSegMode {
	switch m {
	case PSMSingleBlock:
		return gosseract.PSM_SINGLE_BLOCK
	case PSMSparseText:
		return gosseract.PSM_SPARSE_TEXT
	default:
		return gosseract.PSM_AUTO
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
