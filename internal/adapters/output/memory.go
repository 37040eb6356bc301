package output

import (
	"strings"
	"sync"
)

// MemorySink guarda las salidas en memoria (tests y --dry-run).
type MemorySink struct {
	mu     sync.Mutex
	blobs  map[string]*strings.Builder
	clears map[string]int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		blobs:  map[string]*strings.Builder{},
		clears: map[string]int{},
	}
}

func (s *MemorySink) Clear(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[name] = &strings.Builder{}
	s.clears[name]++
	return nil
}

func (s *MemorySink) Append(name, text string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[name]
	if !ok {
		b = &strings.Builder{}
		s.blobs[name] = b
	}
	b.WriteString(text)
	return nil
}

// Get devuelve el contenido actual y si el reporte fue escrito alguna vez.
func (s *MemorySink) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[name]
	if !ok {
		return "", false
	}
	return b.String(), true
}

// Clears cuenta cuántas veces se limpió un reporte.
func (s *MemorySink) Clears(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears[name]
}
