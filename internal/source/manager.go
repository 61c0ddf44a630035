package source

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// Manager wraps a Source and retains the last downloaded bytes so
// conditional fetches (HTTP 304, unchanged mtime) can skip the
// transfer and reuse them.
type Manager struct {
	src Source

	mu      sync.Mutex
	data    []byte
	hint    string
	marker  string
	haveRaw bool
}

// NewManager returns a Manager for one source.
func NewManager(src Source) *Manager {
	return &Manager{src: src}
}

// Name returns the underlying source name.
func (m *Manager) Name() string { return m.src.Name() }

// Load fetches the dataset, passing the last marker so the source can
// answer "unchanged". The returned payload always carries data: on an
// unchanged fetch the retained bytes are reused.
func (m *Manager) Load(ctx context.Context) (*Payload, error) {
	m.mu.Lock()
	prevMarker := m.marker
	m.mu.Unlock()

	p, err := m.src.Fetch(ctx, prevMarker)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Data == nil {
		if !m.haveRaw {
			return nil, eris.Errorf("source: %s reported unchanged but no retained copy exists", m.src.Name())
		}
		return &Payload{Data: m.data, FilenameHint: m.hint, Marker: m.marker}, nil
	}

	m.data = p.Data
	m.hint = p.FilenameHint
	m.marker = p.Marker
	m.haveRaw = true
	return p, nil
}
