package lifecycle

import "wayfarer.game/internal/sim/kernel/model"

// Collection is the player's set of accepted contracts.
type Collection interface {
	List() []*model.Contract
	Get(id string) *model.Contract
	Add(c *model.Contract)
	Remove(id string) bool
}

// ActiveSet keeps accepted contracts in acceptance order.
type ActiveSet struct {
	items []*model.Contract
}

func (s *ActiveSet) List() []*model.Contract {
	return append([]*model.Contract(nil), s.items...)
}

func (s *ActiveSet) Len() int { return len(s.items) }

func (s *ActiveSet) Get(id string) *model.Contract {
	for _, c := range s.items {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *ActiveSet) Add(c *model.Contract) {
	if c == nil || s.Get(c.ID) != nil {
		return
	}
	s.items = append(s.items, c)
}

func (s *ActiveSet) Remove(id string) bool {
	for i, c := range s.items {
		if c.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}
