package offline_cache

import (
	"encoding/hex"
	"net/http"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Response — сохраненный ответ
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	ETag   string
}

func NewResponse(status int, header http.Header, body []byte) *Response {
	sum := blake2b.Sum256(body)
	return &Response{
		Status: status,
		Header: header.Clone(),
		Body:   append([]byte(nil), body...),
		ETag:   `"` + hex.EncodeToString(sum[:16]) + `"`,
	}
}

// Cache — один именованный кэш, ключ — путь запроса
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Response
}

func (c *Cache) Put(key string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = resp
}

func (c *Cache) Match(key string) (*Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resp, ok := c.entries[key]
	return resp, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Storage — набор кэшей по именам (версиям)
type Storage struct {
	mu     sync.RWMutex
	caches map[string]*Cache
}

func NewStorage() *Storage {
	return &Storage{caches: make(map[string]*Cache)}
}

// Open возвращает кэш с таким именем, создавая его при необходимости
func (s *Storage) Open(name string) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok {
		c = &Cache{entries: make(map[string]*Response)}
		s.caches[name] = c
	}
	return c
}

func (s *Storage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Storage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caches[name]; !ok {
		return false
	}
	delete(s.caches, name)
	return true
}

// Match ищет ответ во всех кэшах
func (s *Storage) Match(key string) (*Response, bool) {
	for _, name := range s.Keys() {
		s.mu.RLock()
		c := s.caches[name]
		s.mu.RUnlock()
		if c == nil {
			continue
		}
		if resp, ok := c.Match(key); ok {
			return resp, true
		}
	}
	return nil, false
}
