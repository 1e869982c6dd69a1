package catalog

import "fmt"

// #region category
// Category is the closed set of motion kinds the engine knows how to apply.
type Category uint8

const (
	CategoryAccelerate Category = iota
	CategoryStabilize
	CategoryRecover
	CategoryAdministrative

	// NumCategories is the size of the category set. Tables indexed by
	// Category are declared with this length.
	NumCategories = int(CategoryAdministrative) + 1
)

var categoryNames = [NumCategories]string{
	CategoryAccelerate:     "accelerate",
	CategoryStabilize:      "stabilize",
	CategoryRecover:        "recover",
	CategoryAdministrative: "administrative",
}

func (c Category) String() string {
	if int(c) < NumCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// ParseCategory maps a category name back to its value.
func ParseCategory(name string) (Category, bool) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), true
		}
	}
	return 0, false
}

// #endregion category

// #region motion
// Motion is a single catalog entry.
type Motion struct {
	ID           string
	Category     Category
	MutatesState bool
	Description  string
}

// #endregion motion

// #region catalog
// Version identifies the motion table compiled into this build.
const Version = "motions/v1"

var defaultMotions = []Motion{
	{ID: "accelerate", Category: CategoryAccelerate, MutatesState: true, Description: "increase pace on the current path"},
	{ID: "intensify", Category: CategoryAccelerate, MutatesState: true, Description: "raise workload density"},
	{ID: "push_deadline", Category: CategoryAccelerate, MutatesState: true, Description: "commit to an earlier milestone"},
	{ID: "stabilize", Category: CategoryStabilize, MutatesState: true, Description: "hold pace and reinforce what is in place"},
	{ID: "hold", Category: CategoryStabilize, MutatesState: true, Description: "pause progression without backing off"},
	{ID: "consolidate", Category: CategoryStabilize, MutatesState: true, Description: "review and lock in recent gains"},
	{ID: "recover", Category: CategoryRecover, MutatesState: true, Description: "reduce load to rebuild reserves"},
	{ID: "drift", Category: CategoryRecover, MutatesState: true, Description: "unstructured low-intensity period"},
	{ID: "rest", Category: CategoryRecover, MutatesState: true, Description: "full break"},
	{ID: "log_note", Category: CategoryAdministrative, MutatesState: false, Description: "attach an operator note"},
	{ID: "checkpoint", Category: CategoryAdministrative, MutatesState: false, Description: "mark a reporting boundary"},
	{ID: "audit_mark", Category: CategoryAdministrative, MutatesState: false, Description: "record an audit touchpoint"},
}

// Catalog is an immutable lookup table of motions.
type Catalog struct {
	version string
	ordered []Motion
	byID    map[string]Motion
}

// Default returns the catalog compiled into this build.
func Default() *Catalog {
	c, err := New(Version, defaultMotions)
	if err != nil {
		panic(fmt.Sprintf("built-in motion catalog: %v", err))
	}
	return c
}

// New builds a catalog from the given motions. Ids must be unique and well formed.
func New(version string, motions []Motion) (*Catalog, error) {
	c := &Catalog{
		version: version,
		ordered: make([]Motion, 0, len(motions)),
		byID:    make(map[string]Motion, len(motions)),
	}
	for _, m := range motions {
		if !validID(m.ID) {
			return nil, fmt.Errorf("motion id %q: malformed", m.ID)
		}
		if int(m.Category) >= NumCategories {
			return nil, fmt.Errorf("motion %s: unknown category %d", m.ID, m.Category)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("motion %s: duplicate id", m.ID)
		}
		c.byID[m.ID] = m
		c.ordered = append(c.ordered, m)
	}
	return c, nil
}

// Version returns the catalog version tag.
func (c *Catalog) Version() string { return c.version }

// IsValid reports whether id names a motion in the catalog.
func (c *Catalog) IsValid(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Lookup returns the motion for id.
func (c *Catalog) Lookup(id string) (Motion, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// CategoryOf returns the category of id. ok is false for unknown ids.
func (c *Catalog) CategoryOf(id string) (cat Category, ok bool) {
	m, ok := c.byID[id]
	return m.Category, ok
}

// MutatesState reports whether id changes gauges. Unknown ids report false.
func (c *Catalog) MutatesState(id string) bool {
	return c.byID[id].MutatesState
}

// Motions returns a copy of the catalog in declaration order.
func (c *Catalog) Motions() []Motion {
	out := make([]Motion, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// #endregion catalog

// #region helpers
// validID accepts lowercase ascii words joined by underscores.
func validID(id string) bool {
	if id == "" || id[0] < 'a' || id[0] > 'z' {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		if (ch < 'a' || ch > 'z') && ch != '_' {
			return false
		}
	}
	return true
}

// #endregion helpers
