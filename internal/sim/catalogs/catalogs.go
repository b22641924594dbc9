package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"wayfarer.game/internal/sim/feature/contracts/core"
	"wayfarer.game/internal/sim/kernel/model"
)

//go:embed contracts.schema.json
var contractsSchemaJSON string

var contractsSchema = jsonschema.MustCompileString("contracts.schema.json", contractsSchemaJSON)

// ErrInvalidContract marks a contract definition rejected at load time.
var ErrInvalidContract = errors.New("invalid contract")

type Catalogs struct {
	Contracts ContractCatalog
	Locations LocationCatalog
	Items     ItemCatalog
}

type ContractCatalog struct {
	// Order is the file order; offers are listed in it.
	Order  []string
	ByID   map[string]*model.Contract
	Digest string
}

type LocationCatalog struct {
	Defs   map[string]LocationDef
	Digest string
}

type LocationDef struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Actions []string `json:"actions,omitempty"`
}

type ItemCatalog struct {
	Defs       map[string]ItemDef
	ByCategory map[string][]string
	Digest     string
}

type ItemDef struct {
	ID         string   `json:"id"`
	Categories []string `json:"categories,omitempty"`
	BasePrice  int      `json:"base_price,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadLocations(filepath.Join(configDir, "locations.json"), &c.Locations); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadContracts(filepath.Join(configDir, "contracts.json"), &c.Contracts); err != nil {
		return nil, err
	}
	if err := c.checkReferences(); err != nil {
		return nil, err
	}
	return &c, nil
}

// HasLocation reports whether id is a known location. With no location
// catalog every id is accepted.
func (c *Catalogs) HasLocation(id string) bool {
	if len(c.Locations.Defs) == 0 {
		return true
	}
	_, ok := c.Locations.Defs[id]
	return ok
}

func (c *Catalogs) ItemsInCategory(category string) []string {
	return c.Items.ByCategory[category]
}

// Proposals returns fresh copies of every contract definition in file order.
func (c *Catalogs) Proposals() []*model.Contract {
	out := make([]*model.Contract, 0, len(c.Contracts.Order))
	for _, id := range c.Contracts.Order {
		out = append(out, c.Contracts.ByID[id].Clone())
	}
	return out
}

// Digests summarizes the loaded files for the index.
func (c *Catalogs) Digests() map[string]string {
	return map[string]string{
		"contracts": c.Contracts.Digest,
		"locations": c.Locations.Digest,
		"items":     c.Items.Digest,
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadContracts(path string, out *ContractCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("contracts.json: %w", err)
	}
	if err := contractsSchema.Validate(doc); err != nil {
		return fmt.Errorf("contracts.json: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var defs []*model.Contract
	if err := dec.Decode(&defs); err != nil {
		return fmt.Errorf("contracts.json: %w", err)
	}
	out.ByID = make(map[string]*model.Contract, len(defs))
	for _, d := range defs {
		if ok, code, msg := core.Validate(d); !ok {
			return fmt.Errorf("contracts.json: %s: %w: %s %s", d.ID, ErrInvalidContract, code, msg)
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("contracts.json: %s: %w: duplicate id", d.ID, ErrInvalidContract)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	return nil
}

func loadLocations(path string, out *LocationCatalog) error {
	out.Defs = map[string]LocationDef{}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []LocationDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("locations.json: %w", err)
	}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("locations.json: empty id")
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	out.Defs = map[string]ItemDef{}
	out.ByCategory = map[string][]string{}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		out.Defs[d.ID] = d
		for _, cat := range d.Categories {
			out.ByCategory[cat] = append(out.ByCategory[cat], d.ID)
		}
	}
	for cat := range out.ByCategory {
		sort.Strings(out.ByCategory[cat])
	}
	return nil
}

// checkReferences rejects contracts that point at places, items or
// contracts that do not exist.
func (c *Catalogs) checkReferences() error {
	for _, id := range c.Contracts.Order {
		d := c.Contracts.ByID[id]
		for _, loc := range d.Requirements.Destinations {
			if !c.HasLocation(loc) {
				return fmt.Errorf("contracts.json: %s: %w: unknown destination %q", id, ErrInvalidContract, loc)
			}
		}
		for _, tr := range d.Requirements.Transactions {
			if !c.HasLocation(tr.LocationID) {
				return fmt.Errorf("contracts.json: %s: %w: unknown market %q", id, ErrInvalidContract, tr.LocationID)
			}
			if len(c.Items.Defs) > 0 {
				if _, ok := c.Items.Defs[tr.ItemID]; !ok {
					return fmt.Errorf("contracts.json: %s: %w: unknown item %q", id, ErrInvalidContract, tr.ItemID)
				}
			}
		}
		for _, ref := range append(append([]string(nil), d.UnlocksContractIDs...), d.LocksContractIDs...) {
			if _, ok := c.Contracts.ByID[ref]; !ok {
				return fmt.Errorf("contracts.json: %s: %w: unknown follow-on contract %q", id, ErrInvalidContract, ref)
			}
		}
	}
	return nil
}
