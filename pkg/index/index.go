package index

import (
	"github.com/moyu-x/data-librarian/pkg/hasher"
)

// Index 摘要到首次出现路径的映射
//
// 每个摘要只保留一条记录，一旦写入不会被覆盖；只属于一次扫描，扫描结束时 Close。
type Index interface {
	// Claim 摘要未出现过时记录 path 并返回 duplicate=false；
	// 已出现过时返回最先记录的路径和 duplicate=true
	Claim(digest hasher.Digest, path string) (original string, duplicate bool, err error)
	Len() int
	Close() error
}

// Memory 内存索引
type Memory struct {
	paths map[hasher.Digest]string
}

func NewMemory() *Memory {
	return &Memory{paths: make(map[hasher.Digest]string)}
}

func (m *Memory) Claim(digest hasher.Digest, path string) (string, bool, error) {
	if original, ok := m.paths[digest]; ok {
		return original, true, nil
	}
	m.paths[digest] = path
	return path, false, nil
}

func (m *Memory) Len() int {
	return len(m.paths)
}

func (m *Memory) Close() error {
	m.paths = make(map[hasher.Digest]string)
	return nil
}
