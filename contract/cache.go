package contract

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of parsed documents kept.
const DefaultCacheSize = 64

// Cache is a bounded in-memory cache of parsed documents keyed by a digest
// of the spec text. Byte-identical input returns the same *Document without
// re-parsing. Safe for concurrent use.
type Cache struct {
	parser *Parser
	docs   *lru.Cache[uint64, *Document]
}

// NewCache creates a Cache in front of the given parser. A size of zero
// means DefaultCacheSize.
func NewCache(parser *Parser, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	docs, err := lru.New[uint64, *Document](size)
	if err != nil {
		return nil, fmt.Errorf("create contract cache: %w", err)
	}
	return &Cache{parser: parser, docs: docs}, nil
}

// Parse returns the cached document for specText, parsing and caching on a
// miss. Parse failures are not cached.
func (c *Cache) Parse(specText []byte) (*Document, error) {
	key := xxhash.Sum64(specText)
	if doc, ok := c.docs.Get(key); ok {
		return doc, nil
	}
	doc, err := c.parser.Parse(specText)
	if err != nil {
		return nil, err
	}
	c.docs.Add(key, doc)
	return doc, nil
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	return c.docs.Len()
}
