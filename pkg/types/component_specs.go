package types

import (
	"encoding/json"
	"fmt"

	"github.com/rigforge/rigforge-backend/pkg/enums"
)

// Component specs form a tagged variant over the eight build categories: the
// component row carries the category tag, the jsonb specs column carries the
// matching struct below.

type CPUSpecs struct {
	Socket        string `json:"socket"`
	Cores         int    `json:"cores"`
	Threads       int    `json:"threads"`
	BaseClockMHz  int    `json:"base_clock_mhz"`
	BoostClockMHz int    `json:"boost_clock_mhz,omitempty"`
	TDPWatts      int    `json:"tdp_watts"`
}

type GPUSpecs struct {
	Chipset      string `json:"chipset"`
	MemoryGB     int    `json:"memory_gb"`
	CoreClockMHz int    `json:"core_clock_mhz"`
	LengthMM     int    `json:"length_mm,omitempty"`
	TDPWatts     int    `json:"tdp_watts"`
}

type MotherboardSpecs struct {
	Socket     string `json:"socket"`
	Chipset    string `json:"chipset"`
	FormFactor string `json:"form_factor"`
	RAMSlots   int    `json:"ram_slots"`
}

type RAMSpecs struct {
	CapacityGB int    `json:"capacity_gb"`
	Kind       string `json:"kind"`
	SpeedMHz   int    `json:"speed_mhz"`
	Modules    int    `json:"modules"`
}

type StorageSpecs struct {
	CapacityGB int    `json:"capacity_gb"`
	Interface  string `json:"interface"`
	ReadMBps   int    `json:"read_mbps,omitempty"`
	WriteMBps  int    `json:"write_mbps,omitempty"`
}

type CaseSpecs struct {
	FormFactor  string `json:"form_factor"`
	MaxGPULenMM int    `json:"max_gpu_len_mm,omitempty"`
	Color       string `json:"color,omitempty"`
}

type PSUSpecs struct {
	Wattage int    `json:"wattage"`
	Rating  string `json:"rating,omitempty"`
	Modular bool   `json:"modular,omitempty"`
}

type CoolerSpecs struct {
	Kind      string `json:"kind"`
	FanSizeMM int    `json:"fan_size_mm,omitempty"`
	NoiseDBA  int    `json:"noise_dba,omitempty"`
}

// DecodeComponentSpecs decodes a raw specs document into the struct matching
// the component's category tag.
func DecodeComponentSpecs(category enums.ComponentCategory, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var dest any
	switch category {
	case enums.ComponentCategoryCPU:
		dest = &CPUSpecs{}
	case enums.ComponentCategoryGPU:
		dest = &GPUSpecs{}
	case enums.ComponentCategoryMotherboard:
		dest = &MotherboardSpecs{}
	case enums.ComponentCategoryRAM:
		dest = &RAMSpecs{}
	case enums.ComponentCategoryStorage:
		dest = &StorageSpecs{}
	case enums.ComponentCategoryCase:
		dest = &CaseSpecs{}
	case enums.ComponentCategoryPSU:
		dest = &PSUSpecs{}
	case enums.ComponentCategoryCooler:
		dest = &CoolerSpecs{}
	default:
		return nil, fmt.Errorf("unknown component category %q", category)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return nil, fmt.Errorf("decoding %s specs: %w", category, err)
	}
	return dest, nil
}
