package properties

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

// Category identifies one of the properties files read by the engine at startup.
type Category string

const (
	JMeter      Category = "jmeter"
	SaveService Category = "saveservice"
	Upgrade     Category = "upgrade"
	User        Category = "user"
	System      Category = "system"
	// Global properties are sent to every engine, local and remote, and take precedence
	// over every other category. They have no default source file.
	Global Category = "global"
)

// Categories lists every category in the order they are resolved. Global must stay last.
var Categories = []Category{JMeter, SaveService, Upgrade, User, System, Global}

// FileName is the name of the file the category is read from and written to.
func (c Category) FileName() string {
	return string(c) + ".properties"
}

// HasDefaultSource reports whether the engine ships a default file for this category.
func (c Category) HasDefaultSource() bool {
	return c != Global
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", errors.WithStack(&gateerrors.ErrInvalidArgument{
		Name:    "category",
		Value:   s,
		Message: "must be one of jmeter, saveservice, upgrade, user, system, global",
	})
}

// MergeMode controls how overrides are combined with the default file of a category.
type MergeMode string

const (
	// Replace discards the defaults of any category that has overrides.
	Replace MergeMode = "replace"
	// Merge overlays the overrides on top of the defaults.
	Merge MergeMode = "merge"
)

func ParseMergeMode(s string) (MergeMode, error) {
	switch m := MergeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case Replace, Merge:
		return m, nil
	case "":
		return Replace, nil
	default:
		return "", errors.WithStack(&gateerrors.ErrInvalidArgument{
			Name:    "mode",
			Value:   s,
			Message: "must be one of replace, merge",
		})
	}
}
