package utils

import (
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry 缓存值加上绝对过期时间，过期的条目在读取时惰性清除
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// TTLCache 进程内读缓存：LRU 控制容量，每个键单独带 TTL。
// 用于文章列表、评论树这类读多写少的数据，写路径负责主动失效。
type TTLCache struct {
	inner *lru.Cache[string, entry]
}

var (
	defaultCache *TTLCache
	cacheOnce    sync.Once
)

// GetCache 返回进程级共享缓存
func GetCache() *TTLCache {
	cacheOnce.Do(func() {
		inner, err := lru.New[string, entry](500)
		if err != nil {
			log.Fatalf("Failed to create LRU cache: %v", err)
		}
		defaultCache = &TTLCache{inner: inner}
	})
	return defaultCache
}

// Set 写入一个键，ttl 过后读取返回 nil
func (c *TTLCache) Set(key string, value interface{}, ttl time.Duration) {
	c.inner.Add(key, entry{value: value, expiresAt: time.Now().Add(ttl)})
}

// Get 读取一个键，不存在或已过期返回 nil
func (c *TTLCache) Get(key string) interface{} {
	e, ok := c.inner.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		c.inner.Remove(key)
		return nil
	}
	return e.value
}

// Delete 主动失效一个键
func (c *TTLCache) Delete(key string) {
	c.inner.Remove(key)
}
