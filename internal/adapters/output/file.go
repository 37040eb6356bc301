package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileSink escribe cada reporte en <dir>/<name>.txt.
// Un lock por nombre evita que dos ejecuciones del mismo reporte intercalen escrituras.
type FileSink struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileSink(dir string) (*FileSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: create dir %q: %w", dir, err)
	}
	return &FileSink{dir: dir, locks: map[string]*sync.Mutex{}}, nil
}

func (s *FileSink) Dir() string { return s.dir }

// Path devuelve el archivo destino de un reporte.
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// Clear trunca (o crea vacío) el archivo del reporte.
func (s *FileSink) Clear(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	if err := os.WriteFile(s.Path(name), nil, 0o644); err != nil {
		return fmt.Errorf("output: clear %s: %w", name, err)
	}
	return nil
}

// Append agrega text al final del archivo del reporte.
func (s *FileSink) Append(name, text string) error {
	if err := validName(name); err != nil {
		return err
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(s.Path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", name, err)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return fmt.Errorf("output: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("output: close %s: %w", name, err)
	}
	return nil
}

func (s *FileSink) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("output: invalid report name %q", name)
	}
	return nil
}
