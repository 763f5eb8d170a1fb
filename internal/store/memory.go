package store

import "sync"

// MemorySink keeps the encoded document in memory. Documents round-trip
// through the same encoding as the file sink.
type MemorySink struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	failErr error
}

// NewMemorySink returns a sink seeded with an encoded document (may be nil).
func NewMemorySink(seed []byte) *MemorySink {
	return &MemorySink{data: append([]byte(nil), seed...)}
}

func (s *MemorySink) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Decode(s.data)
}

func (s *MemorySink) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(doc)
}

func (s *MemorySink) Update(fn func(doc *Document) error) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := Decode(s.data)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.saveLocked(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *MemorySink) saveLocked(doc *Document) error {
	if s.failErr != nil {
		err := s.failErr
		s.failErr = nil
		return err
	}
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	s.data = data
	s.saves++
	return nil
}

// FailNextSave makes the next Save return err without storing anything.
func (s *MemorySink) FailNextSave(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

// Saves returns how many saves succeeded.
func (s *MemorySink) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Bytes returns the last stored encoding.
func (s *MemorySink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}
