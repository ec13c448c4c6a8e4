package properties

import (
	"os"
	"path/filepath"

	javaprops "github.com/magiconair/properties"
	"github.com/pkg/errors"

	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

// Override is a single user-supplied property value.
type Override struct {
	Category Category
	Key      string
	Value    string
}

// Overrides holds the user-supplied properties of each category, in the order they were given.
type Overrides map[Category]*javaprops.Properties

// OverridesFromList groups a list of overrides by category. Later entries win over earlier ones.
func OverridesFromList(list []Override) Overrides {
	result := Overrides{}
	for _, o := range list {
		p, ok := result[o.Category]
		if !ok {
			p = newSet()
			result[o.Category] = p
		}
		put(p, o.Key, o.Value)
	}
	return result
}

// Handler writes the resolved properties files of every category into the engine's bin directory.
type Handler struct {
	source DefaultSource
	binDir string
	mode   MergeMode
	// Directory searched for <category>.properties files provided alongside the test plans.
	// Their content is used as the base of the overrides for the matching category.
	customFilesDir string
	resolved       map[Category]*javaprops.Properties
	globalFile     string
}

func NewHandler(source DefaultSource, binDir string, mode MergeMode, customFilesDir string) *Handler {
	return &Handler{
		source:         source,
		binDir:         binDir,
		mode:           mode,
		customFilesDir: customFilesDir,
		resolved:       map[Category]*javaprops.Properties{},
	}
}

// Configure resolves every category and writes one file per category to the bin directory.
// Categories without overrides are copied from their default file unchanged, unless a global
// property supersedes one of their keys. Global properties are applied after every other
// category has been resolved, and are written to global.properties if any were given.
func (h *Handler) Configure(ctx *gatecontext.Context, overrides Overrides) error {
	all, err := h.withCustomFiles(overrides)
	if err != nil {
		return err
	}
	global := all[Global]

	for _, c := range Categories {
		if !c.HasDefaultSource() {
			continue
		}
		raw, err := h.source.Read(c)
		if err != nil {
			return gateerrors.NewExecutionError("configure properties", err, "unable to load default %s", c.FileName())
		}
		defaults, err := Parse(raw)
		if err != nil {
			return gateerrors.NewExecutionError("configure properties", err, "unable to parse default %s", c.FileName())
		}

		override := all[c]
		resolved := Resolve(defaults, override, h.mode)
		globalChanged := ApplyGlobal(resolved, global)
		h.resolved[c] = resolved

		target := filepath.Join(h.binDir, c.FileName())
		if override == nil && !globalChanged {
			ctx.Log.Debugf("Copying default %s", c.FileName())
			if err := os.WriteFile(target, raw, 0o644); err != nil {
				return gateerrors.NewExecutionError("configure properties", err, "unable to write %s", target)
			}
			continue
		}
		ctx.Log.WithField("mode", h.mode).Infof("Writing %s with %d properties", c.FileName(), resolved.Len())
		if err := writeFile(target, resolved); err != nil {
			return gateerrors.NewExecutionError("configure properties", err, "unable to write %s", target)
		}
	}

	if global != nil && global.Len() > 0 {
		resolved := Resolve(nil, global, Replace)
		h.resolved[Global] = resolved
		h.globalFile = filepath.Join(h.binDir, Global.FileName())
		ctx.Log.Infof("Writing %s with %d properties", Global.FileName(), resolved.Len())
		if err := writeFile(h.globalFile, resolved); err != nil {
			return gateerrors.NewExecutionError("configure properties", err, "unable to write %s", h.globalFile)
		}
	}
	return nil
}

// Lookup returns the resolved value of key in category c. Only valid after Configure.
func (h *Handler) Lookup(c Category, key string) (string, bool) {
	p, ok := h.resolved[c]
	if !ok {
		return "", false
	}
	return p.Get(key)
}

// GlobalPropertiesFile is the path of the written global.properties, or empty if there were no global properties.
func (h *Handler) GlobalPropertiesFile() string {
	return h.globalFile
}

func (h *Handler) withCustomFiles(overrides Overrides) (Overrides, error) {
	result := Overrides{}
	for _, c := range Categories {
		var base *javaprops.Properties
		if h.customFilesDir != "" {
			custom := filepath.Join(h.customFilesDir, c.FileName())
			if _, err := os.Stat(custom); err == nil {
				p, err := ReadFile(custom)
				if err != nil {
					return nil, errors.WithMessagef(err, "reading custom properties file %s", custom)
				}
				base = p
			}
		}
		given := overrides[c]
		switch {
		case base == nil && given == nil:
			continue
		case base == nil:
			result[c] = given
		default:
			copyInto(base, given)
			result[c] = base
		}
	}
	return result, nil
}
