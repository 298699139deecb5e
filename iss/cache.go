package iss

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/golang/groupcache/lru"
	"github.com/vmihailenco/msgpack/v5"
)

// memCache keeps the most recently used response bodies by URL.
type memCache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

func newMemCache(size int) *memCache {
	if size <= 0 {
		return nil
	}
	return &memCache{lru: lru.New(size)}
}

func (c *memCache) get(url string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(url)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *memCache) put(url string, body []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(url, body)
}

// diskCache stores response bodies under dir. Entries are only valid on the
// day they were written, so quotes refresh daily while repeated runs on the
// same day do not hit the exchange again.
type diskCache struct {
	dir   string
	today func() civil.Date
}

type diskEntry struct {
	URL  string `msgpack:"url"`
	Day  string `msgpack:"day"`
	Body []byte `msgpack:"body"`
}

func newDiskCache(dir string, today func() civil.Date) *diskCache {
	if dir == "" {
		return nil
	}
	return &diskCache{dir: dir, today: today}
}

func (c *diskCache) file(day civil.Date, url string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%x.msgpack", sha1.Sum([]byte(day.String()+" "+url))))
}

func (c *diskCache) get(url string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	day := c.today()
	content, err := os.ReadFile(c.file(day, url))
	if err != nil {
		return nil, false
	}
	var e diskEntry
	if err := msgpack.Unmarshal(content, &e); err != nil {
		return nil, false
	}
	if e.URL != url || e.Day != day.String() {
		return nil, false
	}
	return e.Body, true
}

func (c *diskCache) put(url string, body []byte) error {
	if c == nil {
		return nil
	}
	day := c.today()
	content, err := msgpack.Marshal(&diskEntry{URL: url, Day: day.String(), Body: body})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(c.dir, "entry-*")
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), c.file(day, url))
}
