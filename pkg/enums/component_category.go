package enums

import "fmt"

// ComponentCategory identifies the slot a component occupies in a build.
type ComponentCategory string

const (
	ComponentCategoryCPU         ComponentCategory = "cpu"
	ComponentCategoryGPU         ComponentCategory = "gpu"
	ComponentCategoryMotherboard ComponentCategory = "motherboard"
	ComponentCategoryRAM         ComponentCategory = "ram"
	ComponentCategoryStorage     ComponentCategory = "storage"
	ComponentCategoryCase        ComponentCategory = "case"
	ComponentCategoryPSU         ComponentCategory = "psu"
	ComponentCategoryCooler      ComponentCategory = "cooler"
)

// BuildSlots lists the categories a complete build must fill, in display order.
var BuildSlots = []ComponentCategory{
	ComponentCategoryCPU,
	ComponentCategoryGPU,
	ComponentCategoryMotherboard,
	ComponentCategoryRAM,
	ComponentCategoryStorage,
	ComponentCategoryCase,
	ComponentCategoryPSU,
	ComponentCategoryCooler,
}

// String implements fmt.Stringer.
func (c ComponentCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ComponentCategory.
func (c ComponentCategory) IsValid() bool {
	for _, candidate := range BuildSlots {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseComponentCategory converts raw input into a ComponentCategory.
func ParseComponentCategory(value string) (ComponentCategory, error) {
	for _, candidate := range BuildSlots {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid component category %q", value)
}
