package source

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/abts/buildmonitor/pkg/plan"
)

// StubSource serves documents from memory. Documents and errors can be
// changed between refreshes.
type StubSource struct {
	mu          sync.Mutex
	docs        map[string][]byte
	order       []string
	fetchErrors map[string]error
	DiscoverErr error
	fetches     int
}

func NewStubSource() *StubSource {
	return &StubSource{
		docs:        make(map[string][]byte),
		fetchErrors: make(map[string]error),
	}
}

func (s *StubSource) Put(filename string, doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[filename]; !ok {
		s.order = append(s.order, filename)
	}
	s.docs[filename] = []byte(doc)
	delete(s.fetchErrors, filename)
}

// Remove drops a document so that it is neither discovered nor fetched.
func (s *StubSource) Remove(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, filename)
	delete(s.fetchErrors, filename)
	s.order = slices.DeleteFunc(s.order, func(name string) bool { return name == filename })
}

func (s *StubSource) FailFetch(filename string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErrors[filename] = err
}

func (s *StubSource) SetDiscoverError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DiscoverErr = err
}

func (s *StubSource) FetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *StubSource) Discover(ctx context.Context) ([]plan.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DiscoverErr != nil {
		return nil, s.DiscoverErr
	}
	return refsFromFilenames(s.order), nil
}

func (s *StubSource) Fetch(ctx context.Context, ref plan.Ref) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if err, ok := s.fetchErrors[ref.Filename]; ok {
		return nil, err
	}
	doc, ok := s.docs[ref.Filename]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref.Filename, ErrNotFound)
	}
	return doc, nil
}
