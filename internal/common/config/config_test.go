package config

import (
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/loadgate/internal/common/gateerrors"
	"github.com/armadaproject/loadgate/internal/properties"
)

type decoded struct {
	Mode     properties.MergeMode
	Category properties.Category
	Pause    time.Duration
	Hosts    []string
}

func decode(t *testing.T, input map[string]interface{}) (decoded, error) {
	t.Helper()
	var out decoded
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			MergeModeHookFunc(),
			CategoryHookFunc(),
		),
		Result: &out,
	})
	require.NoError(t, err)
	return out, decoder.Decode(input)
}

func TestHooks(t *testing.T) {
	out, err := decode(t, map[string]interface{}{
		"mode":     "Merge",
		"category": " SYSTEM ",
		"pause":    "750ms",
		"hosts":    "a,b",
	})
	require.NoError(t, err)
	assert.Equal(t, decoded{
		Mode:     properties.Merge,
		Category: properties.System,
		Pause:    750 * time.Millisecond,
		Hosts:    []string{"a", "b"},
	}, out)
}

func TestHooks_EmptyModeIsReplace(t *testing.T) {
	out, err := decode(t, map[string]interface{}{"mode": ""})
	require.NoError(t, err)
	assert.Equal(t, properties.Replace, out.Mode)
}

func TestHooks_Invalid(t *testing.T) {
	for name, input := range map[string]map[string]interface{}{
		"mode":     {"mode": "append"},
		"category": {"category": "httpclient"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "must be one of")
		})
	}
}

type validated struct {
	Name        string `validate:"required"`
	Parallelism int    `validate:"gte=1"`
	Nested      struct {
		URL string `validate:"omitempty,url"`
	}
}

func TestValidate(t *testing.T) {
	valid := validated{Name: "x", Parallelism: 1}
	assert.NoError(t, Validate(valid))

	invalid := validated{Parallelism: 0}
	invalid.Nested.URL = "not a url"
	err := Validate(invalid)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	var names []string
	for _, e := range merr.Errors {
		var argErr *gateerrors.ErrInvalidArgument
		require.True(t, errors.As(e, &argErr))
		names = append(names, argErr.Name)
	}
	assert.ElementsMatch(t, []string{"Name", "Parallelism", "Nested.URL"}, names)
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "Remote.Hosts[0]", stripPrefix("LoadgateConfig.Remote.Hosts[0]"))
	assert.Equal(t, "Root", stripPrefix("Root"))
}
