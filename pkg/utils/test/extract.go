package testutils

import (
	"context"
	"errors"
	"image"
	"sync"
)

// MockTextSource returns fixed pages for any document.
type MockTextSource struct {
	PageTexts []string

	// Err is returned instead of pages when set.
	Err error

	// Panic makes Pages panic, mimicking a broken PDF parser.
	Panic bool

	Calls int
}

func (m *MockTextSource) Pages(_ context.Context, _ []byte) ([]string, error) {
	m.Calls++
	if m.Panic {
		panic("malformed xref table")
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.PageTexts, nil
}

// MockRenderer returns one blank image per configured page.
type MockRenderer struct {
	NumPages int
	Err      error
	Calls    int
}

func (m *MockRenderer) RenderPages(_ context.Context, _ []byte) ([]image.Image, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}

	pages := make([]image.Image, 0, m.NumPages)
	for i := range m.NumPages {
		// Page width encodes the page index so the recognizer can tell pages apart.
		pages = append(pages, image.NewRGBA(image.Rect(0, 0, i+1, 1)))
	}
	return pages, nil
}

// MockRecognizer returns Texts[i] for the page whose width is i+1. Pages
// listed in FailPages return an error.
type MockRecognizer struct {
	Texts     []string
	FailPages map[int]bool

	mu   sync.Mutex
	Seen []image.Image
}

func (m *MockRecognizer) Recognize(_ context.Context, img image.Image) (string, error) {
	m.mu.Lock()
	m.Seen = append(m.Seen, img)
	m.mu.Unlock()

	i := img.Bounds().Dx() - 1
	if m.FailPages[i] {
		return "", errors.New("mock recognition failure")
	}
	if i < 0 || i >= len(m.Texts) {
		return "", nil
	}
	return m.Texts[i], nil
}
