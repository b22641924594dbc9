package eligibility

import (
	"fmt"

	"wayfarer.game/internal/sim/kernel/model"
)

type Inventory interface {
	HasItem(id string) bool
}

type ItemCategories interface {
	ItemsInCategory(category string) []string
}

type Profile interface {
	SocialStanding() int
	Stamina() int
	KnowledgeLevel() int
	HasInformation(kind string, minQuality, minFreshness int) bool
}

// Player bundles the read-only collaborators consulted when accepting a
// contract. A nil Profile skips the profile predicates.
type Player struct {
	Inventory  Inventory
	Categories ItemCategories
	Profile    Profile
}

// Check evaluates the eligibility predicates in declaration order and reports
// the first failure. It gates acceptance only.
func Check(c *model.Contract, p Player) (ok bool, code string, msg string) {
	if c == nil {
		return false, "E_BAD_REQUEST", "missing contract"
	}
	e := c.Eligibility
	for _, cat := range e.EquipmentCategories {
		if !holdsCategory(p, cat) {
			return false, "E_NO_RESOURCE", fmt.Sprintf("requires %s equipment", cat)
		}
	}
	for _, cat := range e.ToolCategories {
		if !holdsCategory(p, cat) {
			return false, "E_NO_RESOURCE", fmt.Sprintf("requires a %s tool", cat)
		}
	}
	if p.Profile == nil {
		return true, "", ""
	}
	if e.MinSocialStanding > 0 && p.Profile.SocialStanding() < e.MinSocialStanding {
		return false, "E_NO_PERMISSION", fmt.Sprintf("requires social standing %d", e.MinSocialStanding)
	}
	if e.PhysicalDemand > 0 && p.Profile.Stamina() < e.PhysicalDemand {
		return false, "E_BLOCKED", fmt.Sprintf("requires stamina %d", e.PhysicalDemand)
	}
	if e.MinKnowledge > 0 && p.Profile.KnowledgeLevel() < e.MinKnowledge {
		return false, "E_NO_PERMISSION", fmt.Sprintf("requires knowledge %d", e.MinKnowledge)
	}
	for _, info := range e.Information {
		if !p.Profile.HasInformation(info.Type, info.MinQuality, info.MinFreshness) {
			return false, "E_NO_RESOURCE", fmt.Sprintf("requires %s information", info.Type)
		}
	}
	return true, "", ""
}

func holdsCategory(p Player, category string) bool {
	if p.Inventory == nil || p.Categories == nil {
		return false
	}
	for _, id := range p.Categories.ItemsInCategory(category) {
		if p.Inventory.HasItem(id) {
			return true
		}
	}
	return false
}
