package templates

import (
	"context"
	"sort"
	"sync"
)

type repoMock struct {
	mu     sync.Mutex
	nextID int64
	all    map[int64]*Template
}

func NewMockTemplatesRepo() *repoMock {
	return &repoMock{
		nextID: 1,
		all:    make(map[int64]*Template),
	}
}

func (m *repoMock) Add(_ context.Context, template Template) (*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	template.ID = m.nextID
	m.nextID++
	for i := range template.Items {
		template.Items[i].ID = m.nextID
		m.nextID++
		template.Items[i].TemplateID = template.ID
		template.Items[i].SortOrder = i
	}
	m.all[template.ID] = &template
	out := template
	return &out, nil
}

func (m *repoMock) Get(_ context.Context, vaultID string, id int64) (*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.all[id]
	if !ok || t.VaultID != vaultID {
		return nil, ErrTemplateNotFound
	}
	out := *t
	out.Items = append([]Item(nil), t.Items...)
	return &out, nil
}

func (m *repoMock) List(_ context.Context, vaultID string) ([]Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Template, 0)
	for _, t := range m.all {
		if t.VaultID == vaultID {
			all = append(all, *t)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SortOrder != all[j].SortOrder {
			return all[i].SortOrder < all[j].SortOrder
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

func (m *repoMock) Update(_ context.Context, template *Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.all[template.ID]
	if !ok || existing.VaultID != template.VaultID {
		return ErrTemplateNotFound
	}
	for i := range template.Items {
		template.Items[i].TemplateID = template.ID
		template.Items[i].SortOrder = i
	}
	m.all[template.ID] = template
	return nil
}

func (m *repoMock) Delete(_ context.Context, vaultID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.all[id]
	if !ok || t.VaultID != vaultID {
		return ErrTemplateNotFound
	}
	delete(m.all, id)
	return nil
}
