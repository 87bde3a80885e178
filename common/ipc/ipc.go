package ipc

import "github.com/mstarongithub/way2kiosk/common/geom"

type (
	// A request to list the available Outputs
	OutputRequest struct {
		// Whether to include the modes an output supports
		IncludeModes bool `json:"include_modes"`
		// Target one specific output
		SpecifiesOutput bool `json:"specifies_output"`
		// Name of the output you want info on. Only matters if SpecifiesOutput is set
		TargetOutput string `json:"target_output"`
	}

	// A mode an output supports
	OutputMode struct {
		// Mode height in pixel
		Height int `json:"height"`
		// Mode width in pixel
		Width int `json:"width"`
		// Refresh rate of the mode in millihertz
		RefreshRate int `json:"refresh_rate"`
		Preferred   bool `json:"preferred"`
	}

	Output struct {
		ID       uint64    `json:"id"`
		Name     string    `json:"name"`
		Geometry geom.Rect `json:"geometry"`
		// Geometry minus whatever bars and docks reserved
		Usable geom.Rect `json:"usable"`
		// Managed windows in list order
		Windows []uint64 `json:"windows"`
		// How often the output got arranged so far
		Generation uint64 `json:"generation"`
	}

	// Response to a OutputRequest message
	OutputResponse struct {
		// List of all outputs. Only contains target output if specified
		Outputs []Output `json:"outputs"`
		// A list of modes an output supports, keyed by output name. Only set if IncludeModes is true
		OutputModes map[string][]OutputMode `json:"output_modes,omitempty"`
		// Nr of outputs found
		OutputsFound int `json:"outputs_found"`
	}

	Window struct {
		ID       uint64    `json:"id"`
		Role     string    `json:"role"`
		AppID    string    `json:"app_id,omitempty"`
		Title    string    `json:"title,omitempty"`
		Output   uint64    `json:"output,omitempty"`
		Geometry geom.Rect `json:"geometry"`
		Mapped   bool      `json:"mapped"`
		Focused  bool      `json:"focused"`
	}

	WindowResponse struct {
		Windows []Window `json:"windows"`
		Layout  string   `json:"layout"`
		// Zero if nothing is focused
		Focused uint64 `json:"focused"`
	}
)
