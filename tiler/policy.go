package tiler

import (
	"errors"
	"fmt"
	"strings"
)

// Policy selects how windows on an output are arranged
type Policy int

const (
	// One fullscreen window, the default for single app sessions
	PolicyKiosk = Policy(iota)
	// Master column plus stack column
	PolicyTile
	// Every window fills the usable area, stacking decides visibility
	PolicyMonocle
	// ceil(sqrt(n)) columns
	PolicyGrid
)

var policyNames = map[Policy]string{
	PolicyKiosk:   "kiosk",
	PolicyTile:    "tile",
	PolicyMonocle: "monocle",
	PolicyGrid:    "grid",
}

var ErrUnknownPolicy = errors.New("unknown layout policy")

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return PolicyKiosk, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Next cycles through the policies in declaration order
func (p Policy) Next() Policy {
	return (p + 1) % Policy(len(policyNames))
}

const (
	DefaultGap          = 10
	DefaultMasterFactor = 60
	DefaultMasterCount  = 1
	MinMasterFactor     = 1
	MaxMasterFactor     = 99
)

// LayoutConfig holds the arrangement parameters shared by all outputs
type LayoutConfig struct {
	Policy       Policy
	Gap          int // pixels, >= 0
	MasterFactor int // percent of the usable width given to the master column, [1,99]
	MasterCount  int // windows in the master column, >= 1
}

func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Policy:       PolicyKiosk,
		Gap:          DefaultGap,
		MasterFactor: DefaultMasterFactor,
		MasterCount:  DefaultMasterCount,
	}
}

// Validate reports the first parameter that is out of range
func (c LayoutConfig) Validate() error {
	if _, ok := policyNames[c.Policy]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPolicy, int(c.Policy))
	}
	if c.Gap < 0 {
		return fmt.Errorf("gap must be >= 0, got %d", c.Gap)
	}
	if c.MasterFactor < MinMasterFactor || c.MasterFactor > MaxMasterFactor {
		return fmt.Errorf("master_factor must be in [%d,%d], got %d", MinMasterFactor, MaxMasterFactor, c.MasterFactor)
	}
	if c.MasterCount < 1 {
		return fmt.Errorf("master_count must be >= 1, got %d", c.MasterCount)
	}
	return nil
}

// Clamped forces every parameter into its valid range
func (c LayoutConfig) Clamped() LayoutConfig {
	if _, ok := policyNames[c.Policy]; !ok {
		c.Policy = PolicyKiosk
	}
	c.Gap = max(c.Gap, 0)
	c.MasterFactor = min(max(c.MasterFactor, MinMasterFactor), MaxMasterFactor)
	c.MasterCount = max(c.MasterCount, 1)
	return c
}
