package persona

import "strings"

// Store 会话服务与 persona 接口共用的只读目录
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore 内置助手目录：按 ID 索引，List 保持录入顺序。
type MemoryStore struct {
	order []string
	byID  map[string]Persona
}

// NewMemoryStore 载入助手列表。ID 为空的条目被跳过，重复 ID 以首个为准。
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]Persona, len(items))}
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, dup := s.byID[id]; dup {
			continue
		}
		item.ID = id
		item.Expertise = append([]string(nil), item.Expertise...)
		s.order = append(s.order, id)
		s.byID[id] = item
	}
	return s
}

// List 按录入顺序返回全部助手
func (s *MemoryStore) List() []Persona {
	out := make([]Persona, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// FindByID 按 ID 查找助手
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	p, ok := s.byID[strings.TrimSpace(id)]
	return p, ok
}

// WithPreamble 返回替换了默认助手系统指令的新目录；preamble 为空时原样返回。
func (s *MemoryStore) WithPreamble(preamble string) *MemoryStore {
	if strings.TrimSpace(preamble) == "" {
		return s
	}
	items := s.List()
	for i := range items {
		if items[i].ID == DefaultID {
			items[i].Preamble = preamble
		}
	}
	return NewMemoryStore(items)
}
